// Package runner orchestrates the remediation loop: it drives the step
// executor around the simulator, lets the agent pick an action, applies it
// to the trace under the safeguard envelope, scores the result, and loops
// until the deployment converges or the episode budget runs out.
//
// The runner owns no API clients. Everything external arrives through the
// narrow interfaces below, constructed in main and injected.
package runner

import (
	"context"
	"time"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

// StepOutcome is what one simulated observation window produced.
type StepOutcome struct {
	Obs       models.Observation
	Resources models.ResourceState
	SimName   string
	SimUID    string
}

// StepExecutor runs one simulation window for the given trace and reports
// the resulting cluster state. Implementations own provisioning and
// cleanup of whatever the window needed.
type StepExecutor interface {
	RunStep(ctx context.Context, tracePath string, duration time.Duration) (StepOutcome, error)
}

// Observer reads the live state of the deployment under test.
type Observer interface {
	Observe(ctx context.Context, namespace, deploy string) (models.Observation, error)
	CurrentRequests(ctx context.Context, namespace, deploy string) (models.ResourceState, error)
}

// Provisioner creates and deletes the simulation object for one window.
type Provisioner interface {
	Create(ctx context.Context, name, namespace, tracePath string, duration time.Duration) (simenv.Handle, error)
	Delete(ctx context.Context, h simenv.Handle) error
}

// Cleaner runs the pre-step cleanup in the virtual namespace.
type Cleaner interface {
	PreStep(ctx context.Context, namespace string) (int, error)
}

// Stager makes a local trace visible to the simulation driver and returns
// the cluster URL for it.
type Stager interface {
	Stage(localPath string) (string, error)
}

// RunStore persists training runs and steps. The zero value of a run is
// never stored; persistence is optional and injected only when enabled.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.TrainingRun) error
	SaveStep(ctx context.Context, step *models.TrainingStep) error
}
