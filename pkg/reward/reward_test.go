package reward

import (
	"math"
	"strings"
	"testing"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

func obs(ready, pending, total int) models.Observation {
	return models.Observation{Ready: ready, Pending: pending, Total: total}
}

func TestBase(t *testing.T) {
	tests := []struct {
		name string
		obs  models.Observation
		want float64
	}{
		{"perfect", obs(3, 0, 3), 1},
		{"pending pod", obs(2, 1, 3), 0},
		{"not ready", obs(2, 0, 3), 0},
		{"wrong total", obs(2, 0, 2), 0},
		{"scaled past target", obs(3, 0, 4), 0},
	}

	for _, tt := range tests {
		got := Base(Input{Obs: tt.obs, TargetTotal: 3})
		if got != tt.want {
			t.Errorf("%s: Base = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestShapedPerfect(t *testing.T) {
	got := Shaped(Input{Obs: obs(3, 0, 3), TargetTotal: 3})
	if got != 1.0 {
		t.Errorf("Shaped perfect = %v, want 1.0", got)
	}
}

func TestShapedReadinessDistance(t *testing.T) {
	got := Shaped(Input{Obs: obs(2, 0, 3), TargetTotal: 3})
	if math.Abs(got-(-0.1)) > 1e-9 {
		t.Errorf("Shaped one-short = %v, want -0.1", got)
	}
}

func TestShapedAccumulatesPenalties(t *testing.T) {
	// 2 ready of 3 target, 1 pending, total 4 (overshoot 1):
	// -0.1*1 - 0.05*1 - 0.15*1 = -0.3
	got := Shaped(Input{Obs: obs(2, 1, 4), TargetTotal: 3})
	if math.Abs(got-(-0.3)) > 1e-9 {
		t.Errorf("Shaped = %v, want -0.3", got)
	}
}

func TestShapedClampsAtFloor(t *testing.T) {
	// Catastrophic miss: -0.1*10 - 0.05*10 - 0.08*10 = -2.3 before clamping.
	got := Shaped(Input{Obs: obs(0, 10, 0), TargetTotal: 10})
	if got != -1.0 {
		t.Errorf("Shaped = %v, want clamped -1.0", got)
	}
}

func TestMaxPunish(t *testing.T) {
	healthyRes := models.ResourceState{CPU: "500m", Memory: "512Mi", Replicas: 3}
	got := MaxPunish(Input{Obs: obs(3, 0, 3), TargetTotal: 3, Resources: healthyRes})
	if got != 1 {
		t.Errorf("MaxPunish healthy = %v, want 1", got)
	}

	// All three caps breached while converged: 1 - 3*0.5.
	breached := models.ResourceState{CPU: "20000m", Memory: "64Gi", Replicas: 150}
	got = MaxPunish(Input{Obs: obs(3, 0, 3), TargetTotal: 3, Resources: breached})
	if got != -0.5 {
		t.Errorf("MaxPunish breached = %v, want -0.5", got)
	}

	// Not converged, one cap breached: 0 - 0.5.
	oneBreach := models.ResourceState{CPU: "20000m", Memory: "512Mi", Replicas: 3}
	got = MaxPunish(Input{Obs: obs(1, 2, 3), TargetTotal: 3, Resources: oneBreach})
	if got != -0.5 {
		t.Errorf("MaxPunish one breach = %v, want -0.5", got)
	}
}

func TestGetKnownNames(t *testing.T) {
	for _, name := range []string{"base", "shaped", "cost_aware", "cost_aware_v2", "max_punish", "rui"} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
	}
}

func TestGetUnknownName(t *testing.T) {
	_, err := Get("bogus")
	if err == nil {
		t.Fatal("Expected error for unknown reward name")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("Error should name the unknown function, got %v", err)
	}
}

func TestRuiAliasMatchesCostAware(t *testing.T) {
	in := Input{
		Obs:         obs(2, 1, 3),
		TargetTotal: 3,
		Resources:   models.ResourceState{CPU: "2000m", Memory: "1Gi", Replicas: 3},
	}
	alias, _ := Get("rui")
	if alias(in) != CostAware(in) {
		t.Error("rui alias should score identically to cost_aware")
	}
}
