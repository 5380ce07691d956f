package actions

import (
	"fmt"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Safety envelope defaults, matched to the simulated node capacity.
const (
	MaxCPUMillicores = 16000
	MaxMemoryBytes   = 34359738368 // 32 GiB
	MaxReplicas      = 100

	MinCPUMillicores = 50
	MinMemoryBytes   = 64 * 1024 * 1024 // 64Mi
	MinReplicas      = 1
)

// Limits bounds what the mutating actions may produce.
type Limits struct {
	MaxCPUMillicores int64
	MaxMemoryBytes   int64
	MaxReplicas      int
	MinCPUMillicores int64
	MinMemoryBytes   int64
	MinReplicas      int
}

// DefaultLimits returns the standard envelope.
func DefaultLimits() Limits {
	return Limits{
		MaxCPUMillicores: MaxCPUMillicores,
		MaxMemoryBytes:   MaxMemoryBytes,
		MaxReplicas:      MaxReplicas,
		MinCPUMillicores: MinCPUMillicores,
		MinMemoryBytes:   MinMemoryBytes,
		MinReplicas:      MinReplicas,
	}
}

// ValidationError reports an action rejected by the safety envelope.
// It is non-fatal: the caller records the step as blocked and continues.
type ValidationError struct {
	Action Kind
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validate checks whether applying act to current would leave the envelope.
// It is pure: current is never mutated. nil means the action is safe;
// a *ValidationError explains the rejection. Landing exactly on a limit
// is allowed, exceeding it is not. noop is always valid.
func (l Limits) Validate(act Action, current models.ResourceState) error {
	switch act.Kind {
	case Noop:
		return nil

	case BumpCPU, ReduceCPU:
		currentM, _, err := ParseCPU(current.CPU)
		if err != nil {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("failed to parse CPU values: %v", err)}
		}
		stepM, _, err := ParseCPU(act.Step)
		if err != nil {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("failed to parse CPU values: %v", err)}
		}
		if act.Kind == BumpCPU {
			if newM := currentM + stepM; newM > l.MaxCPUMillicores {
				return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("CPU would exceed limit: %dm > %dm (%d CPUs)", newM, l.MaxCPUMillicores, l.MaxCPUMillicores/1000)}
			}
		} else {
			if newM := currentM - stepM; newM < l.MinCPUMillicores {
				return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("CPU would drop below floor: %dm < %dm", newM, l.MinCPUMillicores)}
			}
		}
		return nil

	case BumpMem, ReduceMem:
		currentB, _, err := ParseMemory(current.Memory)
		if err != nil {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("failed to parse memory values: %v", err)}
		}
		stepB, _, err := ParseMemory(act.Step)
		if err != nil {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("failed to parse memory values: %v", err)}
		}
		if act.Kind == BumpMem {
			if newB := currentB + stepB; newB > l.MaxMemoryBytes {
				return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("memory would exceed limit: %d bytes > %d bytes (%dGi)", newB, l.MaxMemoryBytes, l.MaxMemoryBytes/(1024*1024*1024))}
			}
		} else {
			if newB := currentB - stepB; newB < l.MinMemoryBytes {
				return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("memory would drop below floor: %d bytes < %d bytes", newB, l.MinMemoryBytes)}
			}
		}
		return nil

	case ScaleUp:
		if newR := current.Replicas + act.Delta; newR > l.MaxReplicas {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("replicas would exceed limit: %d > %d", newR, l.MaxReplicas)}
		}
		return nil

	case ScaleDown:
		if newR := current.Replicas - act.Delta; newR < l.MinReplicas {
			return &ValidationError{Action: act.Kind, Reason: fmt.Sprintf("replicas would drop below minimum: %d < %d", newR, l.MinReplicas)}
		}
		return nil

	default:
		// Unknown kinds pass through; the apply path rejects them.
		return nil
	}
}

// ExceededCaps reports which hard caps the current state itself breaches,
// ordered {cpu, memory, replicas}. Used by the punishing reward variant.
func (l Limits) ExceededCaps(current models.ResourceState) (cpu, mem, replicas bool) {
	if m, _, err := ParseCPU(current.CPU); err == nil && m > l.MaxCPUMillicores {
		cpu = true
	}
	if b, _, err := ParseMemory(current.Memory); err == nil && b > l.MaxMemoryBytes {
		mem = true
	}
	if current.Replicas > l.MaxReplicas {
		replicas = true
	}
	return cpu, mem, replicas
}
