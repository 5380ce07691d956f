package actions

import (
	"fmt"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/trace"
)

// Apply validates act against the deployment's current state in doc and,
// when allowed, applies it to a copy. The input document is never mutated.
// Blocked actions return an unchanged copy with Blocked set; info.Changed
// is false for noop and for mutations that did not move any value.
func Apply(doc trace.Document, act Action, deploy string, limits Limits) (trace.Document, models.ActionInfo, error) {
	info := models.ActionInfo{Op: string(act.Kind), Deploy: deploy}

	if err := limits.Validate(act, doc.CurrentState(deploy)); err != nil {
		info.Blocked = true
		info.Error = err.Error()
		return doc.Clone(), info, nil
	}

	next := doc.Clone()
	changed, err := Mutate(next, act, deploy, limits)
	if err != nil {
		return nil, info, err
	}
	info.Changed = changed
	if changed {
		info.Diff = trace.Diff(doc, next)
	}
	return next, info, nil
}

// Mutate applies act to doc in place, clamping reductions at the envelope
// floors, and reports whether any value moved. Unknown kinds are an error.
func Mutate(doc trace.Document, act Action, deploy string, limits Limits) (bool, error) {
	switch act.Kind {
	case Noop:
		return false, nil
	case BumpCPU:
		return bumpCPU(doc, deploy, act.Step)
	case BumpMem:
		return bumpMem(doc, deploy, act.Step)
	case ScaleUp:
		return scaleUp(doc, deploy, act.Delta)
	case ReduceCPU:
		return reduceCPU(doc, deploy, act.Step, limits.MinCPUMillicores)
	case ReduceMem:
		return reduceMem(doc, deploy, act.Step, limits.MinMemoryBytes)
	case ScaleDown:
		return scaleDown(doc, deploy, act.Delta, limits.MinReplicas)
	default:
		return false, fmt.Errorf("unknown action kind %q", act.Kind)
	}
}

// bumpCPU raises the first container's CPU request by step on every
// matching deployment.
func bumpCPU(doc trace.Document, deploy, step string) (bool, error) {
	stepM, stepUnit, err := ParseCPU(step)
	if err != nil {
		return false, fmt.Errorf("invalid CPU step %q: %w", step, err)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		raw := dep.Request("cpu")
		currentM, currentUnit, err := ParseCPU(raw)
		if err != nil {
			return changed, fmt.Errorf("deployment %s: %w", deploy, err)
		}
		unit := currentUnit
		if raw == "" {
			unit = stepUnit
		}
		if dep.SetRequest("cpu", FormatCPU(currentM+stepM, unit)) {
			changed = true
		}
	}
	return changed, nil
}

func bumpMem(doc trace.Document, deploy, step string) (bool, error) {
	stepB, stepUnit, err := ParseMemory(step)
	if err != nil {
		return false, fmt.Errorf("invalid memory step %q: %w", step, err)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		raw := dep.Request("memory")
		currentB, currentUnit, err := ParseMemory(raw)
		if err != nil {
			return changed, fmt.Errorf("deployment %s: %w", deploy, err)
		}
		unit := currentUnit
		if raw == "" {
			unit = stepUnit
		}
		if dep.SetRequest("memory", FormatMemory(currentB+stepB, unit)) {
			changed = true
		}
	}
	return changed, nil
}

func scaleUp(doc trace.Document, deploy string, delta int) (bool, error) {
	if delta <= 0 {
		return false, fmt.Errorf("scale_up delta must be positive, got %d", delta)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		dep.SetReplicas(dep.Replicas() + delta)
		changed = true
	}
	return changed, nil
}

// reduceCPU lowers the CPU request by step, clamping at the floor. A value
// already at the floor does not move and does not count as changed.
func reduceCPU(doc trace.Document, deploy, step string, floorM int64) (bool, error) {
	stepM, _, err := ParseCPU(step)
	if err != nil {
		return false, fmt.Errorf("invalid CPU step %q: %w", step, err)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		raw := dep.Request("cpu")
		currentM, currentUnit, err := ParseCPU(raw)
		if err != nil {
			return changed, fmt.Errorf("deployment %s: %w", deploy, err)
		}
		newM := currentM - stepM
		if newM < floorM {
			newM = floorM
		}
		if newM == currentM {
			continue
		}
		unit := currentUnit
		if raw == "" {
			unit = "m"
		}
		if dep.SetRequest("cpu", FormatCPU(newM, unit)) {
			changed = true
		}
	}
	return changed, nil
}

func reduceMem(doc trace.Document, deploy, step string, floorB int64) (bool, error) {
	stepB, _, err := ParseMemory(step)
	if err != nil {
		return false, fmt.Errorf("invalid memory step %q: %w", step, err)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		raw := dep.Request("memory")
		currentB, currentUnit, err := ParseMemory(raw)
		if err != nil {
			return changed, fmt.Errorf("deployment %s: %w", deploy, err)
		}
		newB := currentB - stepB
		if newB < floorB {
			newB = floorB
		}
		if newB == currentB {
			continue
		}
		unit := currentUnit
		if raw == "" {
			unit = "Mi"
		}
		if dep.SetRequest("memory", FormatMemory(newB, unit)) {
			changed = true
		}
	}
	return changed, nil
}

// scaleDown drops the replica count by delta. Unlike the request
// reductions it does not clamp: a result below the minimum leaves the
// deployment untouched.
func scaleDown(doc trace.Document, deploy string, delta, floor int) (bool, error) {
	if delta <= 0 {
		return false, fmt.Errorf("scale_down delta must be positive, got %d", delta)
	}
	changed := false
	for _, dep := range doc.Deployments(deploy) {
		newR := dep.Replicas() - delta
		if newR < floor {
			continue
		}
		dep.SetReplicas(newR)
		changed = true
	}
	return changed, nil
}
