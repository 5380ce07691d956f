package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/remedyops/k8s-sim-trainer/pkg/agent"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// DefaultCheckpointInterval is how many episodes pass between numbered
// checkpoints; the latest checkpoint is refreshed every episode.
const DefaultCheckpointInterval = 10

// TrainerConfig parameterizes a multi-episode training run.
type TrainerConfig struct {
	Episodes           int
	CheckpointInterval int
	// CheckpointDir receives checkpoint_latest.json plus numbered
	// checkpoints; empty disables checkpointing.
	CheckpointDir string
	// SavePath, when set, receives an extra copy of the final agent.
	SavePath string
	BaseSeed int64
	// ContinueOnError skips to the next episode after an aborted one
	// instead of stopping the run.
	ContinueOnError bool

	ClusterID  string
	AgentKind  string
	RewardName string
	Namespace  string
	Deploy     string
}

type epsilonReporter interface {
	Epsilon() float64
}

// Trainer drives the training loop: one episode after another on a fresh
// copy of the initial trace, with per-episode seeds, periodic checkpoints,
// and optional persistence of runs and steps.
type Trainer struct {
	controller *EpisodeController
	agent      agent.Agent
	store      RunStore
	log        logr.Logger
}

// NewTrainer wires the loop. store may be nil to disable persistence.
func NewTrainer(controller *EpisodeController, ag agent.Agent, store RunStore, log logr.Logger) *Trainer {
	return &Trainer{controller: controller, agent: ag, store: store, log: log}
}

// Train runs cfg.Episodes episodes of the configured episode. Each episode
// gets the deterministic seed base + episode*1000 so runs reproduce while
// episodes stay distinct. Returns the run row, the per-episode stats, and
// the error that stopped the loop, if any. Final checkpoints are written
// even when the loop stops early.
func (t *Trainer) Train(ctx context.Context, episode EpisodeConfig, cfg TrainerConfig) (*models.TrainingRun, []models.EpisodeStat, error) {
	if cfg.Episodes <= 0 {
		return nil, nil, fmt.Errorf("episode count must be positive, got %d", cfg.Episodes)
	}
	interval := cfg.CheckpointInterval
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}

	ckpt, checkpointable := t.agent.(agent.Checkpointer)
	if !checkpointable {
		t.log.Info("agent does not support checkpoints, persistence will be skipped", "agent", cfg.AgentKind)
	}
	saveCheckpoints := checkpointable && cfg.CheckpointDir != ""

	run := &models.TrainingRun{
		ID:         uuid.NewString(),
		ClusterID:  cfg.ClusterID,
		Namespace:  cfg.Namespace,
		Deploy:     cfg.Deploy,
		AgentKind:  cfg.AgentKind,
		RewardName: cfg.RewardName,
		StartedAt:  time.Now().UTC(),
	}
	// Persist the run row up front so steps have a parent to reference.
	if t.store != nil {
		if err := t.store.SaveRun(ctx, run); err != nil {
			t.log.Error(err, "failed to persist training run", "run", run.ID)
		}
	}

	var stats []models.EpisodeStat
	var trainErr error

	for ep := 1; ep <= cfg.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			trainErr = err
			break
		}

		epCfg := episode
		epCfg.Seed = cfg.BaseSeed + int64(ep)*1000
		t.log.Info("starting episode", "episode", ep, "episodes", cfg.Episodes, "seed", epCfg.Seed)

		start := time.Now()
		result, err := t.controller.Run(ctx, epCfg)

		stat := models.EpisodeStat{
			Episode:     ep,
			Steps:       result.StepsExecuted,
			Status:      result.Status,
			TotalReward: result.TotalReward,
			Duration:    time.Since(start),
		}
		if rep, ok := t.agent.(epsilonReporter); ok {
			stat.Epsilon = rep.Epsilon()
		}
		stats = append(stats, stat)

		run.Episodes = ep
		run.TotalReward += result.TotalReward

		if t.store != nil {
			t.persistSteps(ctx, run.ID, ep, result.Records)
		}

		if err != nil {
			t.log.Error(err, "episode failed", "episode", ep)
			if !cfg.ContinueOnError {
				trainErr = err
				break
			}
			continue
		}

		if saveCheckpoints {
			if err := t.checkpoint(ckpt, cfg.CheckpointDir, ep, interval); err != nil {
				trainErr = err
				break
			}
		}
	}

	// Mirror of the loop's happy path: whatever stopped training, the
	// latest learned state must survive.
	if saveCheckpoints {
		latest := filepath.Join(cfg.CheckpointDir, "checkpoint_latest.json")
		if err := ckpt.Save(latest); err != nil {
			t.log.Error(err, "failed to save final checkpoint", "path", latest)
		}
	}
	if checkpointable && cfg.SavePath != "" {
		if err := ckpt.Save(cfg.SavePath); err != nil {
			t.log.Error(err, "failed to save final agent", "path", cfg.SavePath)
		} else {
			t.log.Info("saved final agent", "path", cfg.SavePath)
		}
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if t.store != nil {
		if err := t.store.SaveRun(ctx, run); err != nil {
			t.log.Error(err, "failed to persist training run", "run", run.ID)
		}
	}

	return run, stats, trainErr
}

func (t *Trainer) checkpoint(ckpt agent.Checkpointer, dir string, episode, interval int) error {
	latest := filepath.Join(dir, "checkpoint_latest.json")
	if err := ckpt.Save(latest); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if episode%interval == 0 {
		numbered := filepath.Join(dir, fmt.Sprintf("checkpoint_ep%d.json", episode))
		if err := ckpt.Save(numbered); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		t.log.Info("saved interval checkpoint", "path", numbered)
	}
	return nil
}

func (t *Trainer) persistSteps(ctx context.Context, runID string, episode int, records []models.StepRecord) {
	for i, rec := range records {
		step := &models.TrainingStep{
			RunID:      runID,
			Episode:    episode,
			StepIndex:  i,
			ActionType: rec.Action.Type,
			Blocked:    rec.ActionInfo.Blocked,
			Reward:     rec.Reward,
			Obs:        rec.Obs,
		}
		if err := t.store.SaveStep(ctx, step); err != nil {
			t.log.Error(err, "failed to persist step", "run", runID, "episode", episode, "step", i)
			return
		}
	}
}

// CheckpointDirFor names a fresh checkpoint folder for a run, grouped by
// agent kind and start hour.
func CheckpointDirFor(agentKind string, now time.Time) string {
	return filepath.Join("checkpoints", fmt.Sprintf("%s_%s", agentKind, now.Format("20060102_15")))
}

// WriteCommandFile records the exact invocation and the resolved
// parameters beside the checkpoints so a run can be reproduced later.
func WriteCommandFile(dir string, argv []string, params map[string]string) error {
	var b strings.Builder
	b.WriteString("=== Command Run ===\n")
	b.WriteString(strings.Join(argv, " "))
	b.WriteString("\n\n=== Parsed Arguments ===\n")

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, params[k])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "command.txt"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write command file: %w", err)
	}
	return nil
}
