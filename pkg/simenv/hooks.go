package simenv

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Hooks are local cleanup operations the runner performs around a step.
// They run on the agent host against the cluster, they are not SimKube
// driver hooks.
type Hooks struct {
	client kubernetes.Interface
	log    logr.Logger
}

func NewHooks(client kubernetes.Interface, log logr.Logger) *Hooks {
	return &Hooks{client: client, log: log}
}

// PreStep cleans the virtual namespace before a new Simulation is created,
// so pods left behind by an earlier run never pollute the next observation.
// Returns the number of pods deleted. A missing namespace means there is
// nothing to clean.
func (h *Hooks) PreStep(ctx context.Context, namespace string) (int, error) {
	pods, err := h.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{Limit: 100})
	if err != nil {
		if apierrors.IsNotFound(err) {
			h.log.Info("namespace not found, nothing to clean", "namespace", namespace)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	if len(pods.Items) == 0 {
		h.log.V(1).Info("namespace already clean", "namespace", namespace)
		return 0, nil
	}

	grace := int64(0)
	policy := metav1.DeletePropagationForeground
	opts := metav1.DeleteOptions{
		GracePeriodSeconds: &grace,
		PropagationPolicy:  &policy,
	}

	deleted := 0
	for _, pod := range pods.Items {
		if err := h.client.CoreV1().Pods(namespace).Delete(ctx, pod.Name, opts); err != nil {
			if apierrors.IsNotFound(err) {
				continue
			}
			h.log.Info("failed to delete pod, continuing", "pod", pod.Name, "error", err.Error())
			continue
		}
		deleted++
	}

	h.log.Info("pre-step cleanup complete", "namespace", namespace, "deleted", deleted)
	return deleted, nil
}
