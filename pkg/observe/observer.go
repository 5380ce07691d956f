// Package observe reads the live state of the deployment under test: pod
// readiness counts and the current per-pod resource requests. The cluster
// API is the primary source; a Prometheus source covers clusters where
// direct pod reads are not available.
package observe

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// PodObserver counts pods and reads deployment requests through the
// cluster API.
type PodObserver struct {
	client kubernetes.Interface
	log    logr.Logger
}

func NewPodObserver(client kubernetes.Interface, log logr.Logger) *PodObserver {
	return &PodObserver{client: client, log: log}
}

// Observe returns the ready/pending/total pod counts for the deployment.
// Pods are matched by the app=<deploy> label. An empty population is a
// valid observation of all zeros, not an error.
func (o *PodObserver) Observe(ctx context.Context, namespace, deploy string) (models.Observation, error) {
	pods, err := o.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + deploy,
	})
	if err != nil {
		return models.Observation{}, fmt.Errorf("failed to list pods for %s/%s: %w", namespace, deploy, err)
	}

	obs := models.Observation{Total: len(pods.Items)}
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodPending {
			obs.Pending++
			continue
		}
		for _, cond := range pod.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				obs.Ready++
				break
			}
		}
	}

	o.log.V(1).Info("observed pods", "namespace", namespace, "deploy", deploy,
		"ready", obs.Ready, "pending", obs.Pending, "total", obs.Total)
	return obs, nil
}

// CurrentRequests returns the per-pod CPU/memory request of the
// deployment's first container and the configured replica count. Requests
// that were never set read as "0".
func (o *PodObserver) CurrentRequests(ctx context.Context, namespace, deploy string) (models.ResourceState, error) {
	deployment, err := o.client.AppsV1().Deployments(namespace).Get(ctx, deploy, metav1.GetOptions{})
	if err != nil {
		return models.ResourceState{}, fmt.Errorf("failed to read deployment %s/%s: %w", namespace, deploy, err)
	}

	containers := deployment.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return models.ResourceState{}, fmt.Errorf("deployment %s/%s has no containers", namespace, deploy)
	}

	state := models.ResourceState{CPU: "0", Memory: "0"}
	if deployment.Spec.Replicas != nil {
		state.Replicas = int(*deployment.Spec.Replicas)
	}
	if cpu, ok := containers[0].Resources.Requests[corev1.ResourceCPU]; ok {
		state.CPU = cpu.String()
	}
	if mem, ok := containers[0].Resources.Requests[corev1.ResourceMemory]; ok {
		state.Memory = mem.String()
	}
	return state, nil
}
