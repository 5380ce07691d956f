package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/agent"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/reward"
	"github.com/remedyops/k8s-sim-trainer/pkg/trace"
)

// scriptedExecutor replays canned outcomes, repeating the last one when the
// script runs out. failAt selects the zero-based call that returns err.
type scriptedExecutor struct {
	outcomes []StepOutcome
	failAt   int
	err      error
	calls    int
	traces   []string
}

func (s *scriptedExecutor) RunStep(_ context.Context, tracePath string, _ time.Duration) (StepOutcome, error) {
	i := s.calls
	s.calls++
	s.traces = append(s.traces, tracePath)
	if s.err != nil && i == s.failAt {
		return StepOutcome{}, s.err
	}
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	out := s.outcomes[i]
	out.SimName = fmt.Sprintf("diag-%08x", i)
	out.SimUID = fmt.Sprintf("uid-%08x", i)
	return out, nil
}

func outcome(ready, pending, total int) StepOutcome {
	return StepOutcome{
		Obs:       models.Observation{Ready: ready, Pending: pending, Total: total},
		Resources: models.ResourceState{CPU: "500m", Memory: "256Mi", Replicas: total},
	}
}

type updateCall struct {
	state  []float64
	action int
	next   []float64
	reward float64
	done   bool
}

// fakeAgent always picks the configured action and records every update.
type fakeAgent struct {
	action   int
	actCalls int
	updates  []updateCall
}

func (a *fakeAgent) Act(_ []float64) int {
	a.actCalls++
	return a.action
}

func (a *fakeAgent) Update(state []float64, action int, next []float64, reward float64, done bool) {
	a.updates = append(a.updates, updateCall{state: state, action: action, next: next, reward: reward, done: done})
}

func (a *fakeAgent) Reset() {}

func writeTestTrace(t *testing.T, cpu string) string {
	t.Helper()
	doc := trace.Synthetic(trace.SyntheticSpec{
		Deploy:   "web",
		CPU:      cpu,
		Memory:   "256Mi",
		Replicas: 1,
	})
	path := filepath.Join(t.TempDir(), "trace-0001.msgpack")
	if err := trace.Save(doc, path); err != nil {
		t.Fatalf("failed to write test trace: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, exec StepExecutor, ag agent.Agent, rewardFn reward.Func, stepLog *StepLog, learning bool) *StepRunner {
	t.Helper()
	enc, err := agent.NewEncoder(2)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := actions.NewCatalog(4)
	if err != nil {
		t.Fatal(err)
	}
	cfg := StepConfig{
		SimNamespace: "simkube",
		Deploy:       "web",
		Target:       3,
		Learning:     learning,
	}
	return NewStepRunner(exec, ag, enc, catalog, actions.DefaultLimits(), rewardFn, stepLog, cfg, logr.Discard())
}

func constantReward(v float64) reward.Func {
	return func(reward.Input) float64 { return v }
}
