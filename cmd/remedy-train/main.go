package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/agent"
	"github.com/remedyops/k8s-sim-trainer/pkg/config"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/observe"
	"github.com/remedyops/k8s-sim-trainer/pkg/report"
	"github.com/remedyops/k8s-sim-trainer/pkg/reward"
	"github.com/remedyops/k8s-sim-trainer/pkg/runner"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
	"github.com/remedyops/k8s-sim-trainer/pkg/storage"
)

var (
	tracePath    string
	workDir      string
	episodes     int
	maxSteps     int
	durationS    int
	deploy       string
	target       int
	agentKind    string
	rewardName   string
	stepPenalty  float64
	rewardFloor  float64
	nActions     int
	encoderVer   int
	epsilon      float64
	seed         int64
	resume       string
	ckptDir      string
	ckptInterval int
	saveAgent    string
	saveResults  bool
	continueRun  bool
	writeReport  bool
	reportFormat string
	clusterID    string
	verbose      bool

	cfg *config.Config
)

func main() {
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "remedy-train",
		Short: "Train a remediation agent over repeated simulated episodes",
		Long: `Run a full training loop: the same trace is replayed for a number of
episodes, the agent learns from each transition, checkpoints are written on a
fixed cadence, and the run is optionally persisted to PostgreSQL.`,
		Run: runTrain,
	}

	rootCmd.Flags().StringVar(&tracePath, "trace", "", "Initial trace (msgpack)")
	rootCmd.Flags().StringVar(&workDir, "work-dir", ".tmp", "Directory for intermediate traces")
	rootCmd.Flags().IntVar(&episodes, "episodes", 50, "Number of episodes to run")
	rootCmd.Flags().IntVar(&maxSteps, "steps", 20, "Maximum steps per episode")
	rootCmd.Flags().IntVar(&durationS, "duration", 120, "Simulation window in seconds")
	rootCmd.Flags().StringVar(&deploy, "deploy", "", "Deployment to steer (default from TARGET_DEPLOY)")
	rootCmd.Flags().IntVar(&target, "target", 3, "Target replica count")
	rootCmd.Flags().StringVar(&agentKind, "agent", "dqn", "Agent: dqn, greedy, random, or a static policy name")
	rootCmd.Flags().StringVar(&rewardName, "reward", "base", "Reward function")
	rootCmd.Flags().Float64Var(&stepPenalty, "step-penalty", 0, "Per-step penalty for cost_aware_v2")
	rootCmd.Flags().Float64Var(&rewardFloor, "reward-floor", runner.DefaultRewardFloor, "Truncate an episode when cumulative reward drops below this")
	rootCmd.Flags().IntVar(&nActions, "actions", 4, "Catalog size: 4 or 7")
	rootCmd.Flags().IntVar(&encoderVer, "encoder", 2, "State encoder version: 1 or 2")
	rootCmd.Flags().Float64Var(&epsilon, "epsilon", 0.1, "Exploration rate for the greedy agent")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "Base seed; episode n runs with base+n*1000")
	rootCmd.Flags().StringVar(&resume, "resume", "", "Load an agent checkpoint before training")
	rootCmd.Flags().StringVar(&ckptDir, "checkpoint-dir", "", "Checkpoint directory (default checkpoints/<agent>_<timestamp>)")
	rootCmd.Flags().IntVar(&ckptInterval, "checkpoint-interval", runner.DefaultCheckpointInterval, "Write a numbered checkpoint every N episodes")
	rootCmd.Flags().StringVar(&saveAgent, "save-agent", "", "Extra path for the final agent checkpoint")
	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Persist the run and its steps to the database")
	rootCmd.Flags().BoolVar(&continueRun, "continue-on-error", false, "Keep training after an aborted episode")
	rootCmd.Flags().BoolVar(&writeReport, "report", false, "Write a run report into the runs directory")
	rootCmd.Flags().StringVar(&reportFormat, "report-format", "markdown", "Report format: markdown or csv")
	rootCmd.Flags().StringVar(&clusterID, "cluster-id", "kind-simkube", "Cluster identifier recorded with the run")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTrain(cmd *cobra.Command, args []string) {
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

	if _, ok := ag.(agent.Checkpointer); ok && ckptDir == "" {
		ckptDir = runner.CheckpointDirFor(agentKind, time.Now())
	}
	if ckptDir != "" {
		if err := runner.WriteCommandFile(ckptDir, os.Args, map[string]string{
			"agent":    agentKind,
			"reward":   rewardName,
			"episodes": fmt.Sprintf("%d", episodes),
			"steps":    fmt.Sprintf("%d", maxSteps),
			"duration": fmt.Sprintf("%d", durationS),
			"deploy":   deploy,
			"target":   fmt.Sprintf("%d", target),
			"seed":     fmt.Sprintf("%d", seed),
		}); err != nil {
			fmt.Printf("[WARN] Failed to write command file: %v\n", err)
		}
	}

	store := initStorage()
	var runStore runner.RunStore
	if store != nil {
		defer store.Close()
		runStore = store
	}

	trainer := runner.NewTrainer(ctl, ag, runStore, log)

	fmt.Printf("[INFO] Starting training: episodes=%d agent=%s reward=%s trace=%s\n",
		episodes, agentKind, rewardName, tracePath)
	if ckptDir != "" {
		fmt.Printf("[INFO] Checkpoints: %s (every %d episodes)\n", ckptDir, ckptInterval)
	}

	run, stats, trainErr := trainer.Train(ctx, runner.EpisodeConfig{
		TracePath:   tracePath,
		WorkDir:     workDir,
		Duration:    time.Duration(durationS) * time.Second,
		MaxSteps:    maxSteps,
		RewardFloor: rewardFloor,
	}, runner.TrainerConfig{
		Episodes:           episodes,
		CheckpointInterval: ckptInterval,
		CheckpointDir:      ckptDir,
		SavePath:           saveAgent,
		BaseSeed:           seed,
		ContinueOnError:    continueRun,
		ClusterID:          clusterID,
		AgentKind:          agentKind,
		RewardName:         rewardName,
		Namespace:          cfg.VirtualNamespace,
		Deploy:             deploy,
	})

	printSummary(run, stats)
	if writeReport && run != nil && len(stats) > 0 {
		writeRunReport(run, stats)
	}

	if trainErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", trainErr)
		os.Exit(1)
	}
}

func printSummary(run *models.TrainingRun, stats []models.EpisodeStat) {
	if run == nil || len(stats) == 0 {
		return
	}
	rs, err := runner.ComputeRunStats(stats)
	if err != nil {
		return
	}
	fmt.Printf("[INFO] Training complete: run=%s episodes=%d converged=%d\n",
		run.ID, rs.Episodes, rs.Converged)
	fmt.Printf("[INFO] Reward: mean=%.2f p50=%.2f p95=%.2f best=%.2f worst=%.2f\n",
		rs.MeanReward, rs.P50Reward, rs.P95Reward, rs.BestReward, rs.WorstReward)
}

func writeRunReport(run *models.TrainingRun, stats []models.EpisodeStat) {
	format := report.Format(reportFormat)
	ext := "md"
	if format == report.FormatCSV {
		ext = "csv"
	}

	rep, err := report.New(format).Generate(run, stats)
	if err != nil {
		fmt.Printf("[WARN] Failed to generate report: %v\n", err)
		return
	}

	if err := os.MkdirAll(cfg.RunsDir, 0o755); err != nil {
		fmt.Printf("[WARN] Failed to create runs directory: %v\n", err)
		return
	}
	path := filepath.Join(cfg.RunsDir, fmt.Sprintf("report_%s.%s", run.ID, ext))
	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("[WARN] Failed to create report file: %v\n", err)
		return
	}
	defer f.Close()

	if err := report.New(format).Write(rep, f); err != nil {
		fmt.Printf("[WARN] Failed to write report: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Report written to %s\n", path)
}

func initStorage() storage.Store {
	if !cfg.StorageEnabled || !saveResults {
		return nil
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		fmt.Printf("[WARN] Failed to initialize storage: %v\n", err)
		fmt.Println("[WARN] Continuing without result persistence")
		return nil
	}

	fmt.Println("[INFO] Storage initialized successfully")
	return store
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
		Learning:     true,
	}, log)

	return runner.NewEpisodeController(sr, log), ag, nil
}
