package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

type fakeProvisioner struct {
	created    []simenv.Handle
	tracePaths []string
	deleted    []string
	createErr  error
}

func (f *fakeProvisioner) Create(_ context.Context, name, namespace, tracePath string, _ time.Duration) (simenv.Handle, error) {
	if f.createErr != nil {
		return simenv.Handle{}, f.createErr
	}
	h := simenv.Handle{Kind: "simulation", Name: name, Namespace: namespace, UID: "uid-" + name}
	f.created = append(f.created, h)
	f.tracePaths = append(f.tracePaths, tracePath)
	return h, nil
}

func (f *fakeProvisioner) Delete(_ context.Context, h simenv.Handle) error {
	f.deleted = append(f.deleted, h.Name)
	return nil
}

type fakeCleaner struct {
	namespaces []string
	err        error
}

func (f *fakeCleaner) PreStep(_ context.Context, namespace string) (int, error) {
	f.namespaces = append(f.namespaces, namespace)
	return 0, f.err
}

type fakeStager struct {
	staged []string
}

func (f *fakeStager) Stage(localPath string) (string, error) {
	f.staged = append(f.staged, localPath)
	return "file:///data/" + filepath.Base(localPath), nil
}

type fakeObserver struct {
	obs     models.Observation
	res     models.ResourceState
	obsErr  error
	nsSeen  []string
	deploys []string
}

func (f *fakeObserver) Observe(_ context.Context, namespace, deploy string) (models.Observation, error) {
	f.nsSeen = append(f.nsSeen, namespace)
	f.deploys = append(f.deploys, deploy)
	if f.obsErr != nil {
		return models.Observation{}, f.obsErr
	}
	return f.obs, nil
}

func (f *fakeObserver) CurrentRequests(_ context.Context, namespace, deploy string) (models.ResourceState, error) {
	return f.res, nil
}

func newSimExecutor(prov *fakeProvisioner, cleaner *fakeCleaner, stager *fakeStager, obs *fakeObserver) *SimStepExecutor {
	cfg := SimStepConfig{
		SimNamespace:     "simkube",
		VirtualNamespace: "virtual-default",
		Deploy:           "web",
		Target:           3,
	}
	return NewSimStepExecutor(prov, cleaner, stager, obs, cfg, logr.Discard())
}

func TestSimStepExecutorSequencesTheWindow(t *testing.T) {
	prov := &fakeProvisioner{}
	cleaner := &fakeCleaner{}
	stager := &fakeStager{}
	obs := &fakeObserver{
		obs: models.Observation{Ready: 2, Pending: 1, Total: 3},
		res: models.ResourceState{CPU: "500m", Memory: "256Mi", Replicas: 3},
	}
	x := newSimExecutor(prov, cleaner, stager, obs)

	got, err := x.RunStep(context.Background(), "/runs/trace-0001.msgpack", 0)
	if err != nil {
		t.Fatalf("RunStep() error = %v", err)
	}

	if len(cleaner.namespaces) != 1 || cleaner.namespaces[0] != "virtual-default" {
		t.Errorf("pre-step cleanup namespaces = %v", cleaner.namespaces)
	}
	if len(stager.staged) != 1 || stager.staged[0] != "/runs/trace-0001.msgpack" {
		t.Errorf("staged = %v", stager.staged)
	}
	if len(prov.created) != 1 {
		t.Fatalf("created %d simulations, want 1", len(prov.created))
	}
	if prov.created[0].Namespace != "simkube" {
		t.Errorf("simulation namespace = %q", prov.created[0].Namespace)
	}
	if prov.tracePaths[0] != "file:///data/trace-0001.msgpack" {
		t.Errorf("simulation trace path = %q, want the staged cluster URL", prov.tracePaths[0])
	}
	if !strings.HasPrefix(prov.created[0].Name, "diag-") {
		t.Errorf("simulation name = %q, want diag- prefix", prov.created[0].Name)
	}
	if len(prov.deleted) != 1 || prov.deleted[0] != prov.created[0].Name {
		t.Errorf("deleted = %v, want cleanup of %q", prov.deleted, prov.created[0].Name)
	}

	if got.Obs != obs.obs {
		t.Errorf("outcome.Obs = %+v", got.Obs)
	}
	if got.Resources != obs.res {
		t.Errorf("outcome.Resources = %+v", got.Resources)
	}
	if got.SimName != prov.created[0].Name || got.SimUID != prov.created[0].UID {
		t.Errorf("outcome identity = %q/%q", got.SimName, got.SimUID)
	}
	if len(obs.nsSeen) != 1 || obs.nsSeen[0] != "virtual-default" {
		t.Errorf("observed namespaces = %v, want the virtual namespace", obs.nsSeen)
	}
}

func TestSimStepExecutorDeletesOnObserveFailure(t *testing.T) {
	prov := &fakeProvisioner{}
	obs := &fakeObserver{obsErr: errors.New("connection refused")}
	x := newSimExecutor(prov, &fakeCleaner{}, &fakeStager{}, obs)

	if _, err := x.RunStep(context.Background(), "/runs/trace.msgpack", 0); err == nil {
		t.Fatal("RunStep() = nil error, want observe failure")
	}
	if len(prov.deleted) != 1 {
		t.Errorf("deleted = %v, want best-effort cleanup despite the failure", prov.deleted)
	}
}

func TestSimStepExecutorHookFailureStopsBeforeProvisioning(t *testing.T) {
	prov := &fakeProvisioner{}
	cleaner := &fakeCleaner{err: errors.New("forbidden")}
	x := newSimExecutor(prov, cleaner, &fakeStager{}, &fakeObserver{})

	if _, err := x.RunStep(context.Background(), "/runs/trace.msgpack", 0); err == nil {
		t.Fatal("RunStep() = nil error, want hook failure")
	}
	if len(prov.created) != 0 {
		t.Errorf("created = %v, want no simulation after hook failure", prov.created)
	}
}

func TestSimStepExecutorProvisionFailure(t *testing.T) {
	prov := &fakeProvisioner{createErr: errors.New("crd gone")}
	x := newSimExecutor(prov, &fakeCleaner{}, &fakeStager{}, &fakeObserver{})

	if _, err := x.RunStep(context.Background(), "/runs/trace.msgpack", 0); err == nil {
		t.Fatal("RunStep() = nil error, want provision failure")
	}
	if len(prov.deleted) != 0 {
		t.Errorf("deleted = %v, nothing was provisioned", prov.deleted)
	}
}
