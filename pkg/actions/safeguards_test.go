package actions

import (
	"errors"
	"strings"
	"testing"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

func TestValidateNoopAlwaysValid(t *testing.T) {
	limits := DefaultLimits()
	states := []models.ResourceState{
		{},
		{CPU: "16000m", Memory: "32Gi", Replicas: 100},
		{CPU: "not-a-quantity", Memory: "nope", Replicas: -3},
	}

	for _, state := range states {
		if err := limits.Validate(Action{Kind: Noop}, state); err != nil {
			t.Errorf("noop should always validate, got %v for %+v", err, state)
		}
	}
}

func TestValidateBumpCPUAtLimit(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: BumpCPU, Step: "500m"}

	// Landing exactly on the limit is allowed.
	if err := limits.Validate(act, models.ResourceState{CPU: "15500m"}); err != nil {
		t.Errorf("15500m + 500m = 16000m should be allowed, got %v", err)
	}

	// Exceeding it is rejected with a reason naming the limit.
	err := limits.Validate(act, models.ResourceState{CPU: "16000m"})
	if err == nil {
		t.Fatal("16000m + 500m should be rejected")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if !strings.Contains(verr.Reason, "16000") {
		t.Errorf("Reason should mention the limit, got %q", verr.Reason)
	}
	if !strings.Contains(verr.Reason, "exceed") {
		t.Errorf("Reason should mention exceeding, got %q", verr.Reason)
	}
}

func TestValidateBumpCPUCoresInput(t *testing.T) {
	limits := DefaultLimits()
	// 15.8 cores + 500m = 16300m, over the 16000m cap.
	err := limits.Validate(Action{Kind: BumpCPU, Step: "500m"}, models.ResourceState{CPU: "15.8"})
	if err == nil {
		t.Fatal("15.8 cores + 500m should be rejected")
	}
}

func TestValidateBumpMemLimit(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: BumpMem, Step: "256Mi"}

	// 32512Mi + 256Mi = 32768Mi = 32Gi exactly, allowed.
	if err := limits.Validate(act, models.ResourceState{Memory: "32512Mi"}); err != nil {
		t.Errorf("32512Mi + 256Mi = 32Gi exactly should be allowed, got %v", err)
	}

	err := limits.Validate(act, models.ResourceState{Memory: "32Gi"})
	if err == nil {
		t.Fatal("32Gi + 256Mi should be rejected")
	}
	if !strings.Contains(err.Error(), "limit") {
		t.Errorf("Reason should mention the limit, got %q", err.Error())
	}
}

func TestValidateScaleUpLimit(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: ScaleUp, Delta: 1}

	if err := limits.Validate(act, models.ResourceState{Replicas: 99}); err != nil {
		t.Errorf("99 + 1 = 100 should be allowed, got %v", err)
	}
	err := limits.Validate(act, models.ResourceState{Replicas: 100})
	if err == nil {
		t.Fatal("100 + 1 should be rejected")
	}
	if !strings.Contains(err.Error(), "100") {
		t.Errorf("Reason should mention the limit, got %q", err.Error())
	}
}

func TestValidateReduceCPUFloor(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: ReduceCPU, Step: "500m"}

	err := limits.Validate(act, models.ResourceState{CPU: "100m"})
	if err == nil {
		t.Fatal("100m - 500m should be rejected")
	}
	if !strings.Contains(err.Error(), "floor") {
		t.Errorf("Reason should mention the floor, got %q", err.Error())
	}

	// Landing exactly on the floor is allowed.
	if err := limits.Validate(act, models.ResourceState{CPU: "550m"}); err != nil {
		t.Errorf("550m - 500m = 50m should be allowed, got %v", err)
	}
}

func TestValidateReduceMemFloor(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: ReduceMem, Step: "256Mi"}

	if err := limits.Validate(act, models.ResourceState{Memory: "128Mi"}); err == nil {
		t.Error("128Mi - 256Mi should be rejected")
	}
	if err := limits.Validate(act, models.ResourceState{Memory: "320Mi"}); err != nil {
		t.Errorf("320Mi - 256Mi = 64Mi exactly should be allowed, got %v", err)
	}
}

func TestValidateScaleDownMinimum(t *testing.T) {
	limits := DefaultLimits()
	act := Action{Kind: ScaleDown, Delta: 1}

	if err := limits.Validate(act, models.ResourceState{Replicas: 2}); err != nil {
		t.Errorf("2 - 1 = 1 should be allowed, got %v", err)
	}
	err := limits.Validate(act, models.ResourceState{Replicas: 1})
	if err == nil {
		t.Fatal("1 - 1 = 0 should be rejected")
	}
	if !strings.Contains(err.Error(), "minimum") {
		t.Errorf("Reason should mention the minimum, got %q", err.Error())
	}
}

func TestValidateUnparseableState(t *testing.T) {
	limits := DefaultLimits()
	err := limits.Validate(Action{Kind: BumpCPU, Step: "500m"}, models.ResourceState{CPU: "garbage"})
	if err == nil {
		t.Fatal("Unparseable current CPU should be rejected")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("Reason should mention the parse failure, got %q", err.Error())
	}
}

func TestValidateNeverMutatesState(t *testing.T) {
	limits := DefaultLimits()
	state := models.ResourceState{CPU: "500m", Memory: "512Mi", Replicas: 3}
	before := state

	_ = limits.Validate(Action{Kind: BumpCPU, Step: "500m"}, state)
	_ = limits.Validate(Action{Kind: ScaleDown, Delta: 5}, state)

	if state != before {
		t.Errorf("Validate mutated state: %+v -> %+v", before, state)
	}
}

func TestExceededCaps(t *testing.T) {
	limits := DefaultLimits()

	cpu, mem, replicas := limits.ExceededCaps(models.ResourceState{CPU: "20000m", Memory: "64Gi", Replicas: 150})
	if !cpu || !mem || !replicas {
		t.Errorf("Expected all caps exceeded, got cpu=%v mem=%v replicas=%v", cpu, mem, replicas)
	}

	cpu, mem, replicas = limits.ExceededCaps(models.ResourceState{CPU: "500m", Memory: "512Mi", Replicas: 3})
	if cpu || mem || replicas {
		t.Errorf("Expected no caps exceeded, got cpu=%v mem=%v replicas=%v", cpu, mem, replicas)
	}
}
