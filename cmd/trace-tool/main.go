package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/trace"
)

var (
	outPath  string
	inPath   string
	deploy   string
	ns       string
	image    string
	cpu      string
	memory   string
	replicas int
	ts       int64
	desc     string
	asJSON   bool

	actionName string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "trace-tool",
		Short: "Generate, convert, and inspect simulation traces",
		Long: `Utilities for the msgpack traces the simulator replays: generate
synthetic single-deployment traces, convert between msgpack and JSON,
inspect a trace, and apply one remediation action to it offline.`,
	}

	var generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic single-deployment trace",
		Run:   runGenerate,
	}
	generateCmd.Flags().StringVar(&outPath, "out", "", "Output path for the trace")
	generateCmd.Flags().StringVar(&deploy, "deploy", "web", "Deployment name")
	generateCmd.Flags().StringVar(&ns, "namespace", "default", "Namespace inside the trace")
	generateCmd.Flags().StringVar(&image, "image", "", "Container image")
	generateCmd.Flags().StringVar(&cpu, "cpu", "500m", "CPU request")
	generateCmd.Flags().StringVar(&memory, "memory", "256Mi", "Memory request")
	generateCmd.Flags().IntVar(&replicas, "replicas", 1, "Replica count")
	generateCmd.Flags().Int64Var(&ts, "ts", 0, "Event timestamp (unix seconds)")
	generateCmd.Flags().StringVar(&desc, "desc", "", "Trace description")
	generateCmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of msgpack")

	var convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convert a trace between JSON and msgpack",
		Long: `Convert a trace file. The direction follows the input extension:
a .json input is packed to msgpack, anything else is unpacked to JSON.`,
		Run: runConvert,
	}
	convertCmd.Flags().StringVar(&inPath, "in", "", "Input trace")
	convertCmd.Flags().StringVar(&outPath, "out", "", "Output trace")

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Print a trace summary and one deployment's state",
		Run:   runShow,
	}
	showCmd.Flags().StringVar(&inPath, "trace", "", "Trace to inspect (msgpack)")
	showCmd.Flags().StringVar(&deploy, "deploy", "web", "Deployment to summarize")

	var applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Apply one remediation action to a trace offline",
		Run:   runApply,
	}
	applyCmd.Flags().StringVar(&inPath, "trace", "", "Input trace (msgpack)")
	applyCmd.Flags().StringVar(&outPath, "out", "", "Output path for the mutated trace")
	applyCmd.Flags().StringVar(&actionName, "action", "", "Action to apply (e.g. bump_cpu)")
	applyCmd.Flags().StringVar(&deploy, "deploy", "web", "Deployment to mutate")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(applyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) {
	if outPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --out is required")
		os.Exit(1)
	}

	doc := trace.Synthetic(trace.SyntheticSpec{
		Deploy:      deploy,
		Namespace:   ns,
		Image:       image,
		CPU:         cpu,
		Memory:      memory,
		Replicas:    replicas,
		TS:          ts,
		Description: desc,
	})

	var err error
	if asJSON {
		err = trace.SaveJSON(doc, outPath)
	} else {
		err = trace.Save(doc, outPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] Generated %s: deploy=%s cpu=%s memory=%s replicas=%d\n",
		outPath, deploy, cpu, memory, replicas)
}

func runConvert(cmd *cobra.Command, args []string) {
	if inPath == "" || outPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --in and --out are required")
		os.Exit(1)
	}

	var err error
	if strings.HasSuffix(inPath, ".json") {
		err = trace.ConvertJSONToMsgpack(inPath, outPath)
	} else {
		err = trace.ConvertMsgpackToJSON(inPath, outPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] Converted %s -> %s\n", inPath, outPath)
}

func runShow(cmd *cobra.Command, args []string) {
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --trace is required")
		os.Exit(1)
	}

	doc, err := trace.Load(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(doc.String())

	if _, ok := doc.FindDeployment(deploy); !ok {
		fmt.Printf("[WARN] Deployment %s not found in trace\n", deploy)
		return
	}
	state := doc.CurrentState(deploy)
	fmt.Printf("%s: cpu=%s memory=%s replicas=%d\n", deploy, state.CPU, state.Memory, state.Replicas)
}

func runApply(cmd *cobra.Command, args []string) {
	if inPath == "" || outPath == "" || actionName == "" {
		fmt.Fprintln(os.Stderr, "Error: --trace, --out, and --action are required")
		os.Exit(1)
	}

	catalog, err := actions.NewCatalog(7)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var act actions.Action
	found := false
	names := make([]string, 0, catalog.Size())
	for _, a := range catalog.Actions() {
		names = append(names, string(a.Kind))
		if string(a.Kind) == actionName {
			act = a
			found = true
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: unknown action %q (valid: %s)\n", actionName, strings.Join(names, ", "))
		os.Exit(1)
	}

	doc, err := trace.Load(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	next, info, err := actions.Apply(doc, act, deploy, actions.DefaultLimits())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))

	if err := trace.Save(next, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[INFO] Wrote %s\n", outPath)
}
