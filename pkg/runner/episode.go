package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// DefaultRewardFloor truncates an episode whose cumulative reward has
// collapsed; continuing to simulate a hopeless trajectory only burns
// cluster time.
const DefaultRewardFloor = -50.0

// EpisodeConfig parameterizes one episode.
type EpisodeConfig struct {
	// TracePath is the initial trace; each step's output becomes the next
	// step's input.
	TracePath string
	// WorkDir holds the intermediate traces (default .tmp).
	WorkDir  string
	Duration time.Duration
	MaxSteps int
	// RewardFloor truncates the episode when the cumulative reward drops
	// below it. Zero selects DefaultRewardFloor.
	RewardFloor float64
	Seed        int64
}

// EpisodeController runs episodes: sequences of steps sharing one trace
// chain, ending in TERMINATED when the deployment converges, TRUNCATED on
// the step budget or the reward floor, or ABORTED when a collaborator
// fails. Collaborator failures are never retried here.
type EpisodeController struct {
	runner *StepRunner
	log    logr.Logger
}

func NewEpisodeController(runner *StepRunner, log logr.Logger) *EpisodeController {
	return &EpisodeController{runner: runner, log: log}
}

// Run executes one episode. On abort the partial result is returned
// together with the collaborator error.
func (c *EpisodeController) Run(ctx context.Context, cfg EpisodeConfig) (models.EpisodeResult, error) {
	if cfg.MaxSteps <= 0 {
		return models.EpisodeResult{}, fmt.Errorf("max steps must be positive, got %d", cfg.MaxSteps)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = ".tmp"
	}
	if cfg.RewardFloor == 0 {
		cfg.RewardFloor = DefaultRewardFloor
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return models.EpisodeResult{}, fmt.Errorf("failed to create work dir %s: %w", cfg.WorkDir, err)
	}

	result := models.EpisodeResult{Status: models.EpisodeRunning}
	current := cfg.TracePath
	cumulative := 0.0

	var prevState []float64
	prevAction := 0

	for step := 0; step < cfg.MaxSteps; step++ {
		c.log.V(1).Info("episode step", "step", step, "trace", current)

		traceOut := filepath.Join(cfg.WorkDir, "trace-next.msgpack")
		res, err := c.runner.executeStep(ctx, current, traceOut, cfg.Duration, cfg.Seed+int64(step))
		if err != nil {
			result.Status = models.EpisodeAborted
			result.TotalReward = cumulative
			return result, err
		}

		result.Records = append(result.Records, res.record)
		result.StepsExecuted++
		cumulative += res.record.Reward

		// The reward observed now scores the state the previous action
		// produced, so the transition closes one step late.
		if c.runner.cfg.Learning && prevState != nil {
			c.runner.agent.Update(prevState, prevAction, res.state, res.record.Reward, res.converged)
		}

		if res.converged {
			result.Status = models.EpisodeTerminated
			result.Converged = true
			break
		}
		if cumulative < cfg.RewardFloor {
			c.log.Info("cumulative reward fell below floor, truncating episode",
				"cumulative", cumulative, "floor", cfg.RewardFloor)
			result.Status = models.EpisodeTruncated
			break
		}

		prevState, prevAction = res.state, res.action
		current = traceOut
	}

	if result.Status == models.EpisodeRunning {
		result.Status = models.EpisodeTruncated
	}
	result.TotalReward = cumulative

	c.log.Info("episode complete",
		"status", string(result.Status),
		"steps", result.StepsExecuted,
		"totalReward", result.TotalReward,
	)
	return result, nil
}
