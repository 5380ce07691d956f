package runner

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/agent"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/reward"
	"github.com/remedyops/k8s-sim-trainer/pkg/trace"
)

// StepConfig fixes the per-run parameters of the remediation loop.
type StepConfig struct {
	// SimNamespace is recorded in the step log; the executor owns where
	// objects actually land.
	SimNamespace string
	Deploy       string
	Target       int
	// StepPenalty is passed through to stepwise reward variants.
	StepPenalty float64
	// Learning gates agent.Update calls; static policies run with it off.
	Learning bool
}

// StepRunner executes single remediation steps: run the simulation window,
// let the agent decide, mutate the trace under the safeguard envelope,
// score the result, and log the record.
type StepRunner struct {
	exec     StepExecutor
	agent    agent.Agent
	enc      agent.Encoder
	catalog  *actions.Catalog
	limits   actions.Limits
	rewardFn reward.Func
	stepLog  *StepLog
	cfg      StepConfig
	log      logr.Logger
}

// NewStepRunner wires the step loop. stepLog may be nil to disable run
// logging.
func NewStepRunner(exec StepExecutor, ag agent.Agent, enc agent.Encoder, catalog *actions.Catalog, limits actions.Limits, rewardFn reward.Func, stepLog *StepLog, cfg StepConfig, log logr.Logger) *StepRunner {
	return &StepRunner{
		exec:     exec,
		agent:    ag,
		enc:      enc,
		catalog:  catalog,
		limits:   limits,
		rewardFn: rewardFn,
		stepLog:  stepLog,
		cfg:      cfg,
		log:      log,
	}
}

// stepResult carries what the episode loop needs beyond the logged record.
type stepResult struct {
	record    models.StepRecord
	state     []float64
	action    int
	converged bool
}

// executeStep runs one full step: simulate, observe, decide, apply, score,
// log. A converged observation skips the decision and records a noop; the
// trace is still carried forward unchanged so the chain stays intact.
func (r *StepRunner) executeStep(ctx context.Context, traceIn, traceOut string, duration time.Duration, seed int64) (stepResult, error) {
	outcome, err := r.exec.RunStep(ctx, traceIn, duration)
	if err != nil {
		return stepResult{}, &CollaboratorError{Op: "step executor failed", Err: err}
	}

	state := r.enc.Encode(outcome.Obs, outcome.Resources, r.cfg.Target)
	converged := outcome.Obs.Converged(r.cfg.Target)

	actionIdx := 0
	act := actions.Action{Kind: actions.Noop}
	if converged {
		r.log.Info("target state reached", "ready", outcome.Obs.Ready, "total", outcome.Obs.Total)
	} else {
		actionIdx = r.agent.Act(state)
		act, err = r.catalog.At(actionIdx)
		if err != nil {
			return stepResult{}, err
		}
	}

	doc, err := trace.Load(traceIn)
	if err != nil {
		return stepResult{}, &CollaboratorError{Op: "failed to load trace", Err: err}
	}
	next, info, err := actions.Apply(doc, act, r.cfg.Deploy, r.limits)
	if err != nil {
		return stepResult{}, &CollaboratorError{Op: "failed to apply action", Err: err}
	}
	if info.Blocked {
		r.log.Info("action blocked by safeguards", "action", act.String(), "reason", info.Error)
	}
	if err := trace.Save(next, traceOut); err != nil {
		return stepResult{}, &CollaboratorError{Op: "failed to save trace", Err: err}
	}

	score := r.rewardFn(reward.Input{
		Obs:         outcome.Obs,
		TargetTotal: r.cfg.Target,
		Resources:   outcome.Resources,
		DurationS:   int(duration.Seconds()),
		Blocked:     info.Blocked,
		StepPenalty: r.cfg.StepPenalty,
	})

	rec := models.StepRecord{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		SimName:    outcome.SimName,
		SimUID:     outcome.SimUID,
		Namespace:  r.cfg.SimNamespace,
		TraceIn:    traceIn,
		TraceOut:   traceOut,
		Obs:        outcome.Obs,
		Action:     act.Record(),
		ActionInfo: info,
		Reward:     score,
		DurationS:  int(duration.Seconds()),
		Seed:       seed,
	}
	if r.stepLog != nil {
		if err := r.stepLog.Record(rec); err != nil {
			return stepResult{}, &CollaboratorError{Op: "failed to write step log", Err: err}
		}
	}

	r.log.Info("step complete",
		"action", act.String(),
		"reward", score,
		"ready", outcome.Obs.Ready,
		"pending", outcome.Obs.Pending,
		"total", outcome.Obs.Total,
	)
	return stepResult{record: rec, state: state, action: actionIdx, converged: converged}, nil
}

// RunOnce executes a single standalone step and, for learning agents,
// feeds it back as a terminal transition. This is the one-shot CLI
// contract; episodes chain steps through the controller instead.
func (r *StepRunner) RunOnce(ctx context.Context, traceIn, traceOut string, duration time.Duration, seed int64) (models.StepRecord, error) {
	res, err := r.executeStep(ctx, traceIn, traceOut, duration, seed)
	if err != nil {
		return models.StepRecord{}, err
	}
	if r.cfg.Learning {
		// A standalone step has no successor; the transition is terminal
		// and the next state never contributes to the target.
		r.agent.Update(res.state, res.action, res.state, res.record.Reward, true)
	}
	return res.record, nil
}
