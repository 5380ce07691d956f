// Package simenv manages the lifecycle of SimKube Simulation resources
// around a single observation window: create the Simulation, wait a fixed
// wall-clock duration while the driver replays the trace, then delete it.
// It also carries the local cleanup hooks and preflight checks a run
// performs before touching the simulator.
package simenv

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

const (
	SimGroup    = "simkube.dev"
	SimVersion  = "v1alpha1"
	SimResource = "simulations"

	DefaultDriverImage = "ghcr.io/simkube/sk-driver:latest"
	DefaultDriverPort  = 8080
)

// SimulationGVR identifies the Simulation custom resource. Override the
// package constants at build time if a cluster serves the CRD under a
// different group or version.
var SimulationGVR = schema.GroupVersionResource{
	Group:    SimGroup,
	Version:  SimVersion,
	Resource: SimResource,
}

// Handle identifies whatever Create provisioned so Delete can clean it up.
// Kind is "simulation" normally, "configmap" when the CRD was missing and
// the placeholder fallback was used.
type Handle struct {
	Kind      string
	Name      string
	Namespace string
	UID       string
}

// SimEnv provisions and tears down one simulation run.
type SimEnv struct {
	dynamic dynamic.Interface
	core    kubernetes.Interface
	log     logr.Logger

	DriverImage string
	DriverPort  int
}

func NewSimEnv(dyn dynamic.Interface, core kubernetes.Interface, log logr.Logger) *SimEnv {
	return &SimEnv{
		dynamic:     dyn,
		core:        core,
		log:         log,
		DriverImage: DefaultDriverImage,
		DriverPort:  DefaultDriverPort,
	}
}

// Create provisions a Simulation named name in namespace, pointing the
// driver at tracePath for a run of duration. An already-existing object is
// treated as success so a later Delete can still clean it. When the
// Simulation CRD is not installed the method falls back to a placeholder
// ConfigMap, which keeps the create/wait/delete wiring exercisable on
// clusters without SimKube.
func (e *SimEnv) Create(ctx context.Context, name, namespace, tracePath string, duration time.Duration) (Handle, error) {
	installed, err := e.crdInstalled()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to check for simulation CRD: %w", err)
	}

	if !installed {
		e.log.Info("simulation CRD not installed, creating placeholder configmap", "name", name, "namespace", namespace)
		return e.createPlaceholder(ctx, name, namespace, tracePath, duration)
	}

	sim := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": SimGroup + "/" + SimVersion,
		"kind":       "Simulation",
		"metadata": map[string]any{
			"name":      name,
			"namespace": namespace,
		},
		"spec": map[string]any{
			"driver": map[string]any{
				"image":     e.DriverImage,
				"namespace": namespace,
				"port":      int64(e.DriverPort),
				"tracePath": tracePath,
			},
			"duration": fmt.Sprintf("%ds", int(duration.Seconds())),
		},
	}}

	created, err := e.dynamic.Resource(SimulationGVR).Namespace(namespace).Create(ctx, sim, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			e.log.Info("simulation already exists, reusing", "name", name, "namespace", namespace)
			return Handle{Kind: "simulation", Name: name, Namespace: namespace, UID: name}, nil
		}
		return Handle{}, fmt.Errorf("failed to create simulation %s/%s: %w", namespace, name, err)
	}

	uid := string(created.GetUID())
	if uid == "" {
		uid = name
	}
	return Handle{Kind: "simulation", Name: name, Namespace: namespace, UID: uid}, nil
}

// Delete removes whatever Create provisioned. Missing objects are fine, so
// Delete is safe to call from deferred cleanup paths.
func (e *SimEnv) Delete(ctx context.Context, h Handle) error {
	grace := int64(0)
	policy := metav1.DeletePropagationForeground
	opts := metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
		PropagationPolicy:  &policy,
	}

	var err error
	switch h.Kind {
	case "configmap":
		err = e.core.CoreV1().ConfigMaps(h.Namespace).Delete(ctx, h.Name, opts)
	default:
		err = e.dynamic.Resource(SimulationGVR).Namespace(h.Namespace).Delete(ctx, h.Name, opts)
	}
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s/%s: %w", h.Kind, h.Namespace, h.Name, err)
	}
	return nil
}

// crdInstalled asks discovery whether the Simulation resource is served.
// Any error other than "group version not found" propagates so a flaky API
// server never silently routes runs into the placeholder path.
func (e *SimEnv) crdInstalled() (bool, error) {
	list, err := e.core.Discovery().ServerResourcesForGroupVersion(SimGroup + "/" + SimVersion)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, res := range list.APIResources {
		if res.Name == SimResource {
			return true, nil
		}
	}
	return false, nil
}

func (e *SimEnv) createPlaceholder(ctx context.Context, name, namespace, tracePath string, duration time.Duration) (Handle, error) {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Data: map[string]string{
			"tracePath": tracePath,
			"duration":  fmt.Sprintf("%d", int(duration.Seconds())),
		},
	}
	created, err := e.core.CoreV1().ConfigMaps(namespace).Create(ctx, cm, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsAlreadyExists(err) {
			return Handle{Kind: "configmap", Name: name, Namespace: namespace, UID: name}, nil
		}
		return Handle{}, fmt.Errorf("failed to create placeholder configmap %s/%s: %w", namespace, name, err)
	}
	uid := string(created.UID)
	if uid == "" {
		uid = name
	}
	return Handle{Kind: "configmap", Name: name, Namespace: namespace, UID: uid}, nil
}

// WaitFixed blocks for the observation window. The simulated run has no
// completion signal to watch; the agent simply observes after a fixed
// wall-clock duration. Returns early with the context error if ctx is
// cancelled.
func WaitFixed(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SimulationName derives a deterministic DNS-safe name for one step's
// Simulation from the run inputs, so retries of the same step collide with
// (and reuse) the existing object instead of leaking a second one.
func SimulationName(tracePath, namespace, deploy string, target int, timestamp string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s%s%s%d%s", tracePath, namespace, deploy, target, timestamp)))
	return "diag-" + hex.EncodeToString(sum[:])[:8]
}
