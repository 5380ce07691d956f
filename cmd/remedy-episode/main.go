package main

import (
	"context"
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
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/observe"
	"github.com/remedyops/k8s-sim-trainer/pkg/reward"
	"github.com/remedyops/k8s-sim-trainer/pkg/runner"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

var (
	tracePath   string
	workDir     string
	maxSteps    int
	durationS   int
	deploy      string
	target      int
	agentKind   string
	rewardName  string
	stepPenalty float64
	rewardFloor float64
	nActions    int
	encoderVer  int
	epsilon     float64
	seed        int64
	resume      string
	checkpoint  string
	noLearn     bool
	verbose     bool

	cfg *config.Config
)

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "remedy-episode",
		Short: "Run one training episode against a simulated cluster",
		Long: `Run a chain of remediation steps on one trace until the deployment
converges, the step budget runs out, or the cumulative reward collapses.`,
		Run: runEpisode,
	}

	rootCmd.Flags().StringVar(&tracePath, "trace", "", "Initial trace (msgpack)")
	rootCmd.Flags().StringVar(&workDir, "work-dir", ".tmp", "Directory for intermediate traces")
	rootCmd.Flags().IntVar(&maxSteps, "steps", 20, "Maximum steps per episode")
	rootCmd.Flags().IntVar(&durationS, "duration", 120, "Simulation window in seconds")
	rootCmd.Flags().StringVar(&deploy, "deploy", "", "Deployment to steer (default from TARGET_DEPLOY)")
	rootCmd.Flags().IntVar(&target, "target", 3, "Target replica count")
	rootCmd.Flags().StringVar(&agentKind, "agent", "dqn", "Agent: dqn, greedy, random, or a static policy name")
	rootCmd.Flags().StringVar(&rewardName, "reward", "base", "Reward function")
	rootCmd.Flags().Float64Var(&stepPenalty, "step-penalty", 0, "Per-step penalty for cost_aware_v2")
	rootCmd.Flags().Float64Var(&rewardFloor, "reward-floor", runner.DefaultRewardFloor, "Truncate when cumulative reward drops below this")
	rootCmd.Flags().IntVar(&nActions, "actions", 4, "Catalog size: 4 or 7")
	rootCmd.Flags().IntVar(&encoderVer, "encoder", 2, "State encoder version: 1 or 2")
	rootCmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "Exploration rate for the greedy agent")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Base seed for the episode")
	rootCmd.Flags().StringVar(&resume, "resume", "", "Load an agent checkpoint before the episode")
	rootCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Save the agent checkpoint after the episode")
	rootCmd.Flags().BoolVar(&noLearn, "no-learn", false, "Disable agent updates during the episode")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runEpisode(cmd *cobra.Command, args []string) {
	if tracePath == "" {
		fmt.Fprintln(os.Stderr, "Error: --trace is required")
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

	ctl, ag, err := buildController(clients, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("[INFO] Starting episode: trace=%s steps=%d agent=%s reward=%s\n",
		tracePath, maxSteps, agentKind, rewardName)

	result, err := ctl.Run(ctx, runner.EpisodeConfig{
		TracePath:   tracePath,
		WorkDir:     workDir,
		Duration:    time.Duration(durationS) * time.Second,
		MaxSteps:    maxSteps,
		RewardFloor: rewardFloor,
		Seed:        seed,
	})

	printResult(result)
	saveCheckpoint(ag)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printResult(result models.EpisodeResult) {
	fmt.Printf("[INFO] Episode finished: status=%s steps=%d totalReward=%.2f converged=%v\n",
		result.Status, result.StepsExecuted, result.TotalReward, result.Converged)
	for _, rec := range result.Records {
		fmt.Printf("  %s  %-12s reward=%+.2f ready=%d/%d pending=%d\n",
			rec.Timestamp, rec.Action.Type, rec.Reward, rec.Obs.Ready, rec.Obs.Total, rec.Obs.Pending)
	}
}

func saveCheckpoint(ag agent.Agent) {
	if checkpoint == "" {
		return
	}
	ckpt, ok := ag.(agent.Checkpointer)
	if !ok {
		fmt.Printf("[WARN] Agent %s does not support checkpoints\n", agentKind)
		return
	}
	if err := ckpt.Save(checkpoint); err != nil {
		fmt.Printf("[WARN] Failed to save checkpoint: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Checkpoint saved to %s\n", checkpoint)
}

func buildController(clients *simenv.Clients, log logr.Logger) (*runner.EpisodeController, agent.Agent, error) {
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
		Learning:     !noLearn,
	}, log)

	return runner.NewEpisodeController(sr, log), ag, nil
}
