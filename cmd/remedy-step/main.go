package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/agent"
	"github.com/remedyops/k8s-sim-trainer/pkg/config"
	"github.com/remedyops/k8s-sim-trainer/pkg/observe"
	"github.com/remedyops/k8s-sim-trainer/pkg/reward"
	"github.com/remedyops/k8s-sim-trainer/pkg/runner"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

var (
	traceIn     string
	traceOut    string
	durationS   int
	deploy      string
	target      int
	agentKind   string
	rewardName  string
	stepPenalty float64
	nActions    int
	encoderVer  int
	epsilon     float64
	seed        int64
	resume      string
	learn       bool
	checkpoint  string
	verbose     bool

	cfg *config.Config
)

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "remedy-step",
		Short: "Run one remediation step against a simulated cluster",
		Long: `Provision a SimKube simulation window for a trace, observe the resulting
pods, let the agent pick one remediation action and write the mutated trace.`,
		Run: runStep,
	}

	rootCmd.Flags().StringVar(&traceIn, "trace-in", "", "Input trace (msgpack)")
	rootCmd.Flags().StringVar(&traceOut, "trace-out", ".tmp/trace-out.msgpack", "Output trace (msgpack)")
	rootCmd.Flags().IntVar(&durationS, "duration", 120, "Simulation window in seconds")
	rootCmd.Flags().StringVar(&deploy, "deploy", "", "Deployment to steer (default from TARGET_DEPLOY)")
	rootCmd.Flags().IntVar(&target, "target", 3, "Target replica count")
	rootCmd.Flags().StringVar(&agentKind, "agent", "dqn", "Agent: dqn, greedy, random, or a static policy name")
	rootCmd.Flags().StringVar(&rewardName, "reward", "base", "Reward function")
	rootCmd.Flags().Float64Var(&stepPenalty, "step-penalty", 0, "Per-step penalty for cost_aware_v2")
	rootCmd.Flags().IntVar(&nActions, "actions", 4, "Catalog size: 4 or 7")
	rootCmd.Flags().IntVar(&encoderVer, "encoder", 2, "State encoder version: 1 or 2")
	rootCmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "Exploration rate for the greedy agent")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Seed recorded with the step")
	rootCmd.Flags().StringVar(&resume, "resume", "", "Load an agent checkpoint before the step")
	rootCmd.Flags().BoolVar(&learn, "learn", false, "Apply a terminal update to the agent after the step")
	rootCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Save the agent checkpoint after the step")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStep(cmd *cobra.Command, args []string) {
	if traceIn == "" {
		fmt.Fprintln(os.Stderr, "Error: --trace-in is required")
		os.Exit(1)
	}
	if deploy == "" {
		deploy = cfg.TargetDeploy
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
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

	fmt.Println("[INFO] Running preflight checks...")
	pre := simenv.NewPreflight(clients.Kube, log)
	if err := pre.Run(ctx, cfg.SimNamespace, cfg.VirtualNamespace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sr, ag, err := buildStepRunner(clients, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] Running one step: trace=%s deploy=%s target=%d agent=%s reward=%s\n",
		traceIn, deploy, target, agentKind, rewardName)

	rec, err := sr.RunOnce(ctx, traceIn, traceOut, time.Duration(durationS)*time.Second, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if checkpoint != "" {
		if ckpt, ok := ag.(agent.Checkpointer); ok {
			if err := ckpt.Save(checkpoint); err != nil {
				fmt.Printf("[WARN] Failed to save checkpoint: %v\n", err)
			} else {
				fmt.Printf("[INFO] Checkpoint saved to %s\n", checkpoint)
			}
		} else {
			fmt.Printf("[WARN] Agent %s does not support checkpoints\n", agentKind)
		}
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func buildStepRunner(clients *simenv.Clients, log logr.Logger) (*runner.StepRunner, agent.Agent, error) {
	catalog, err := actions.NewCatalog(nActions)
	if err != nil {
		return nil, nil, err
	}
	enc, err := agent.NewEncoder(encoderVer)
	if err != nil {
		return nil, nil, err
	}
	rewardFn, err := reward.Get(rewardName)
	if err != nil {
		return nil, nil, err
	}

	ag, err := agent.New(agent.Config{
		Kind:    agentKind,
		Catalog: catalog,
		Encoder: enc,
		Epsilon: epsilon,
		Seed:    seed,
		Logger:  log,
	})
	if err != nil {
		return nil, nil, err
	}

	if resume != "" {
		ckpt, ok := ag.(agent.Checkpointer)
		if !ok {
			return nil, nil, fmt.Errorf("agent %s does not support checkpoints", agentKind)
		}
		if err := ckpt.Load(resume); err != nil {
			return nil, nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		fmt.Printf("[INFO] Resumed agent from %s\n", resume)
	}

	observer := observe.NewPodObserver(clients.Kube, log)
	env := simenv.NewSimEnv(clients.Dynamic, clients.Kube, log)
	hooks := simenv.NewHooks(clients.Kube, log)
	stager := simenv.NewTraceStager("", cfg.TraceClusterPath, log)

	exec := runner.NewSimStepExecutor(env, hooks, stager, observer, runner.SimStepConfig{
		SimNamespace:     cfg.SimNamespace,
		VirtualNamespace: cfg.VirtualNamespace,
		Deploy:           deploy,
		Target:           target,
	}, log)

	stepLog := runner.NewStepLog(cfg.RunsDir)

	sr := runner.NewStepRunner(exec, ag, enc, catalog, actions.DefaultLimits(), rewardFn, stepLog, runner.StepConfig{
		SimNamespace: cfg.SimNamespace,
		Deploy:       deploy,
		Target:       target,
		StepPenalty:  stepPenalty,
		Learning:     learn,
	}, log)

	return sr, ag, nil
}
