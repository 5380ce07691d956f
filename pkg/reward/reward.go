// Package reward scores one step of the remediation loop. Every scoring
// function is pure: the same input always produces the same value and no
// state is kept between calls.
package reward

import (
	"fmt"
	"math"
	"sort"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Input carries everything a scoring function may consult for one step.
type Input struct {
	Obs         models.Observation
	TargetTotal int
	Resources   models.ResourceState
	DurationS   int
	// Blocked is set when the step's action was rejected by the
	// safeguard validator; stepwise variants penalize it.
	Blocked bool
	// StepPenalty is an optional flat per-step cost for stepwise variants.
	StepPenalty float64
}

// Func maps one step's input to a scalar training signal.
type Func func(in Input) float64

var registry = map[string]Func{
	"base":          Base,
	"shaped":        Shaped,
	"cost_aware":    CostAware,
	"cost_aware_v2": CostAwareV2,
	"max_punish":    MaxPunish,

	// Deprecated: older name for cost_aware, kept so existing run
	// configurations keep resolving.
	"rui": CostAware,
}

// Get resolves a reward function by name. Unknown names fail eagerly.
func Get(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown reward function %q (available: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the registered reward functions in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Base returns 1 iff every pod is ready, none are pending, and the count
// sits exactly at the target; otherwise 0.
func Base(in Input) float64 {
	if in.Obs.Converged(in.TargetTotal) {
		return 1
	}
	return 0
}

// Shaped returns 1.0 on the perfect state and otherwise accumulates
// graded penalties for readiness distance, pending pods, overshoot, and
// undershoot, clamped to [-1, 1].
func Shaped(in Input) float64 {
	if in.Obs.Converged(in.TargetTotal) {
		return 1.0
	}
	r := -0.1 * math.Abs(float64(in.Obs.Ready-in.TargetTotal))
	if in.Obs.Pending > 0 {
		r -= 0.05 * float64(in.Obs.Pending)
	}
	if overshoot := in.Obs.Total - in.TargetTotal; overshoot > 0 {
		r -= 0.15 * float64(overshoot)
	}
	if undershoot := in.TargetTotal - in.Obs.Total; undershoot > 0 {
		r -= 0.08 * float64(undershoot)
	}
	return clamp(r, -1.0, 1.0)
}

// MaxPunish equals the base reward minus 0.5 for each hard cap (CPU,
// memory, replicas) the current requests breach, regardless of health.
func MaxPunish(in Input) float64 {
	r := Base(in)
	cpu, mem, replicas := actions.DefaultLimits().ExceededCaps(in.Resources)
	for _, exceeded := range []bool{cpu, mem, replicas} {
		if exceeded {
			r -= 0.5
		}
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
