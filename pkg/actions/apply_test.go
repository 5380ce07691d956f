package actions

import (
	"strings"
	"testing"

	"github.com/remedyops/k8s-sim-trainer/pkg/trace"
)

func sampleTrace() trace.Document {
	return trace.Synthetic(trace.SyntheticSpec{
		Deploy:   "web",
		CPU:      "500m",
		Memory:   "512Mi",
		Replicas: 2,
	})
}

func requestOf(t *testing.T, doc trace.Document, resource string) string {
	t.Helper()
	dep, ok := doc.FindDeployment("web")
	if !ok {
		t.Fatal("Deployment web not found")
	}
	return dep.Request(resource)
}

func TestBumpCPU(t *testing.T) {
	doc := sampleTrace()
	changed, err := Mutate(doc, Action{Kind: BumpCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	if cpu := requestOf(t, doc, "cpu"); cpu != "1000m" {
		t.Errorf("Expected cpu 1000m, got %q", cpu)
	}
}

func TestBumpCPUPrefersExistingCoresUnit(t *testing.T) {
	doc := trace.Synthetic(trace.SyntheticSpec{Deploy: "web", CPU: "0.5", Memory: "512Mi", Replicas: 2})
	changed, err := Mutate(doc, Action{Kind: BumpCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	// 0.5 cores + 500m = 1000 millicores, re-serialized in the cores unit.
	if cpu := requestOf(t, doc, "cpu"); cpu != "1" {
		t.Errorf("Expected cpu \"1\", got %q", cpu)
	}
}

func TestBumpMem(t *testing.T) {
	doc := sampleTrace()
	changed, err := Mutate(doc, Action{Kind: BumpMem, Step: "256Mi"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	if mem := requestOf(t, doc, "memory"); mem != "768Mi" {
		t.Errorf("Expected memory 768Mi, got %q", mem)
	}
}

func TestScaleUp(t *testing.T) {
	doc := sampleTrace()
	changed, err := Mutate(doc, Action{Kind: ScaleUp, Delta: 2}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	dep, _ := doc.FindDeployment("web")
	if dep.Replicas() != 4 {
		t.Errorf("Expected 4 replicas, got %d", dep.Replicas())
	}
}

func TestScaleUpRejectsNonPositiveDelta(t *testing.T) {
	doc := sampleTrace()
	if _, err := Mutate(doc, Action{Kind: ScaleUp, Delta: 0}, "web", DefaultLimits()); err == nil {
		t.Error("Expected error for delta 0")
	}
}

func TestReduceCPUClampsAtFloor(t *testing.T) {
	doc := sampleTrace()
	// 500m - 500m = 0, clamped to the 50m floor.
	changed, err := Mutate(doc, Action{Kind: ReduceCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	if cpu := requestOf(t, doc, "cpu"); cpu != "50m" {
		t.Errorf("Expected cpu 50m, got %q", cpu)
	}
}

func TestReduceCPUAtFloorIsNoChange(t *testing.T) {
	doc := trace.Synthetic(trace.SyntheticSpec{Deploy: "web", CPU: "50m", Memory: "512Mi", Replicas: 2})
	changed, err := Mutate(doc, Action{Kind: ReduceCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if changed {
		t.Error("Value already at floor should not report a change")
	}
}

func TestReduceMem(t *testing.T) {
	doc := sampleTrace()
	changed, err := Mutate(doc, Action{Kind: ReduceMem, Step: "256Mi"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	if mem := requestOf(t, doc, "memory"); mem != "256Mi" {
		t.Errorf("Expected memory 256Mi, got %q", mem)
	}
}

func TestScaleDown(t *testing.T) {
	doc := sampleTrace()
	changed, err := Mutate(doc, Action{Kind: ScaleDown, Delta: 1}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !changed {
		t.Error("Expected changed=true")
	}
	dep, _ := doc.FindDeployment("web")
	if dep.Replicas() != 1 {
		t.Errorf("Expected 1 replica, got %d", dep.Replicas())
	}
}

func TestScaleDownBelowMinimumLeavesTraceUnchanged(t *testing.T) {
	doc := trace.Synthetic(trace.SyntheticSpec{Deploy: "web", CPU: "500m", Memory: "512Mi", Replicas: 1})
	changed, err := Mutate(doc, Action{Kind: ScaleDown, Delta: 2}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if changed {
		t.Error("Scale below minimum should not change anything")
	}
	dep, _ := doc.FindDeployment("web")
	if dep.Replicas() != 1 {
		t.Errorf("Expected replicas untouched at 1, got %d", dep.Replicas())
	}
}

func TestMutateUnknownDeployment(t *testing.T) {
	doc := sampleTrace()
	before := doc.Clone()

	changed, err := Mutate(doc, Action{Kind: BumpCPU, Step: "500m"}, "api", DefaultLimits())
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if changed {
		t.Error("Expected changed=false for unknown deployment")
	}
	if diff := trace.Diff(before, doc); len(diff) != 0 {
		t.Errorf("Trace should be unchanged, got diff %v", diff)
	}
}

func TestApplyNoop(t *testing.T) {
	doc := sampleTrace()
	next, info, err := Apply(doc, Action{Kind: Noop}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if info.Changed || info.Blocked {
		t.Errorf("noop should be unchanged and unblocked, got %+v", info)
	}
	if diff := trace.Diff(doc, next); len(diff) != 0 {
		t.Errorf("noop should not touch the trace, got diff %v", diff)
	}
}

func TestApplyBlockedLeavesTraceUnchanged(t *testing.T) {
	doc := trace.Synthetic(trace.SyntheticSpec{Deploy: "web", CPU: "16000m", Memory: "512Mi", Replicas: 2})
	next, info, err := Apply(doc, Action{Kind: BumpCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !info.Blocked {
		t.Fatal("Expected action to be blocked")
	}
	if info.Changed {
		t.Error("Blocked actions must not report changes")
	}
	if info.Error == "" || !strings.Contains(info.Error, "16000") {
		t.Errorf("Expected error mentioning the limit, got %q", info.Error)
	}
	if diff := trace.Diff(doc, next); len(diff) != 0 {
		t.Errorf("Blocked action must leave the trace unchanged, got %v", diff)
	}
}

func TestApplyRecordsDiff(t *testing.T) {
	doc := sampleTrace()
	next, info, err := Apply(doc, Action{Kind: BumpCPU, Step: "500m"}, "web", DefaultLimits())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !info.Changed {
		t.Fatal("Expected changed=true")
	}
	if len(info.Diff) != 1 {
		t.Fatalf("Expected 1 diff entry, got %d: %v", len(info.Diff), info.Diff)
	}
	if !strings.Contains(info.Diff[0].Path, "cpu") {
		t.Errorf("Diff path should mention cpu, got %q", info.Diff[0].Path)
	}
	// Input document untouched.
	if cpu := requestOf(t, doc, "cpu"); cpu != "500m" {
		t.Errorf("Apply mutated its input: cpu = %q", cpu)
	}
	dep, _ := next.FindDeployment("web")
	if cpu := dep.Request("cpu"); cpu != "1000m" {
		t.Errorf("Expected cpu 1000m in new trace, got %q", cpu)
	}
}

func TestApplyUnknownKind(t *testing.T) {
	doc := sampleTrace()
	if _, _, err := Apply(doc, Action{Kind: Kind("explode")}, "web", DefaultLimits()); err == nil {
		t.Error("Expected error for unknown action kind")
	}
}

func TestNewCatalog(t *testing.T) {
	cat, err := NewCatalog(4)
	if err != nil {
		t.Fatalf("NewCatalog(4) failed: %v", err)
	}
	if cat.Size() != 4 {
		t.Errorf("Expected size 4, got %d", cat.Size())
	}
	first, err := cat.At(0)
	if err != nil || first.Kind != Noop {
		t.Errorf("Index 0 should be noop, got %+v (%v)", first, err)
	}

	cat7, err := NewCatalog(7)
	if err != nil {
		t.Fatalf("NewCatalog(7) failed: %v", err)
	}
	last, err := cat7.At(6)
	if err != nil || last.Kind != ScaleDown {
		t.Errorf("Index 6 should be scale_down, got %+v (%v)", last, err)
	}

	if _, err := NewCatalog(5); err == nil {
		t.Error("NewCatalog(5) should fail")
	}
	if _, err := cat.At(9); err == nil {
		t.Error("At(9) should fail for a 4-action catalog")
	}
	if _, err := cat.At(-1); err == nil {
		t.Error("At(-1) should fail")
	}
}
