package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

// SimStepConfig fixes the cluster coordinates a run operates on.
type SimStepConfig struct {
	// SimNamespace is where Simulation objects are created.
	SimNamespace string
	// VirtualNamespace is where the driver materializes the trace's pods.
	VirtualNamespace string
	Deploy           string
	Target           int
}

// SimStepExecutor runs one observation window against a SimKube cluster:
// clean the virtual namespace, stage the trace, create the Simulation,
// wait out the window, then read pod counts and requests. The Simulation
// is deleted on every exit path.
type SimStepExecutor struct {
	prov     Provisioner
	hooks    Cleaner
	stager   Stager
	observer Observer
	cfg      SimStepConfig
	log      logr.Logger
}

func NewSimStepExecutor(prov Provisioner, hooks Cleaner, stager Stager, observer Observer, cfg SimStepConfig, log logr.Logger) *SimStepExecutor {
	return &SimStepExecutor{
		prov:     prov,
		hooks:    hooks,
		stager:   stager,
		observer: observer,
		cfg:      cfg,
		log:      log,
	}
}

func (x *SimStepExecutor) RunStep(ctx context.Context, tracePath string, duration time.Duration) (StepOutcome, error) {
	if _, err := x.hooks.PreStep(ctx, x.cfg.VirtualNamespace); err != nil {
		return StepOutcome{}, fmt.Errorf("failed to run pre-step cleanup: %w", err)
	}

	clusterPath, err := x.stager.Stage(tracePath)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("failed to stage trace: %w", err)
	}

	name := simenv.SimulationName(tracePath, x.cfg.SimNamespace, x.cfg.Deploy, x.cfg.Target, time.Now().UTC().Format(time.RFC3339Nano))
	handle, err := x.prov.Create(ctx, name, x.cfg.SimNamespace, clusterPath, duration)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("failed to provision simulation: %w", err)
	}
	defer func() {
		// Cleanup must run even when the window failed or the context
		// was cancelled, so it gets a fresh context.
		if err := x.prov.Delete(context.Background(), handle); err != nil {
			x.log.Info("failed to delete simulation, continuing", "name", handle.Name, "error", err.Error())
		}
	}()

	x.log.V(1).Info("simulation running", "name", name, "duration", duration.String())
	if err := simenv.WaitFixed(ctx, duration); err != nil {
		return StepOutcome{}, err
	}

	obs, err := x.observer.Observe(ctx, x.cfg.VirtualNamespace, x.cfg.Deploy)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("failed to observe pods: %w", err)
	}
	resources, err := x.observer.CurrentRequests(ctx, x.cfg.VirtualNamespace, x.cfg.Deploy)
	if err != nil {
		return StepOutcome{}, fmt.Errorf("failed to read current requests: %w", err)
	}

	return StepOutcome{Obs: obs, Resources: resources, SimName: name, SimUID: handle.UID}, nil
}
