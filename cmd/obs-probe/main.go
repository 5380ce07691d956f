package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/remedyops/k8s-sim-trainer/pkg/config"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/observe"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

var (
	namespace string
	deploy    string
	withUsage bool
	useProm   bool
	verbose   bool

	cfg *config.Config
)

// observer is the read surface shared by the pod and Prometheus backends.
type observer interface {
	Observe(ctx context.Context, namespace, deploy string) (models.Observation, error)
	CurrentRequests(ctx context.Context, namespace, deploy string) (models.ResourceState, error)
}

type probeOutput struct {
	Namespace   string               `json:"namespace"`
	Deploy      string               `json:"deploy"`
	Source      string               `json:"source"`
	Observation models.Observation   `json:"observation"`
	Requests    models.ResourceState `json:"requests"`
	Usage       []observe.PodUsage   `json:"usage,omitempty"`
}

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "obs-probe",
		Short: "Inspect the observation an agent would receive right now",
		Long: `Read the current pod readiness, resource requests, and optionally live
usage for one deployment, exactly as the step runner would observe them.`,
		Run: runProbe,
	}

	rootCmd.Flags().StringVar(&namespace, "ns", "", "Namespace to observe (default from VIRTUAL_NAMESPACE)")
	rootCmd.Flags().StringVar(&deploy, "deploy", "", "Deployment to observe (default from TARGET_DEPLOY)")
	rootCmd.Flags().BoolVar(&withUsage, "usage", false, "Include per-pod CPU and memory usage from metrics-server")
	rootCmd.Flags().BoolVar(&useProm, "prom", false, "Observe through Prometheus instead of the pod API")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runProbe(cmd *cobra.Command, args []string) {
	if namespace == "" {
		namespace = cfg.VirtualNamespace
	}
	if deploy == "" {
		deploy = cfg.TargetDeploy
	}

	klog.InitFlags(nil)
	if verbose {
		flag.Set("v", "2")
	}
	log := klog.NewKlogr()

	ctx := context.Background()

	clients, err := simenv.NewClients(cfg.KubeconfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var obs observer = observe.NewPodObserver(clients.Kube, log)
	source := "pods"
	if useProm {
		prom, err := observe.NewPromObserver(cfg.PrometheusURL, log)
		if err != nil {
			fmt.Printf("[WARN] Failed to initialize Prometheus observer: %v\n", err)
			fmt.Println("[WARN] Falling back to pod observation")
		} else if !prom.IsAvailable(ctx) {
			fmt.Printf("[WARN] Prometheus not reachable at %s\n", cfg.PrometheusURL)
			fmt.Println("[WARN] Falling back to pod observation")
		} else {
			obs = prom
			source = "prometheus"
		}
	}

	observation, err := obs.Observe(ctx, namespace, deploy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	requests, err := obs.CurrentRequests(ctx, namespace, deploy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out := probeOutput{
		Namespace:   namespace,
		Deploy:      deploy,
		Source:      source,
		Observation: observation,
		Requests:    requests,
	}

	if withUsage {
		probe := observe.NewUsageProbe(clients.Metrics)
		usages, err := probe.PodUsages(ctx, namespace, deploy)
		if err != nil {
			fmt.Printf("[WARN] Failed to read pod usage: %v\n", err)
		} else {
			out.Usage = usages
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
