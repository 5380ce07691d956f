package observe

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// PodUsage is the measured consumption of one pod, summed over its
// containers.
type PodUsage struct {
	Pod           string `json:"pod"`
	CPUMillicores int64  `json:"cpu_millicores"`
	MemoryBytes   int64  `json:"memory_bytes"`
}

// UsageProbe reads live consumption from the metrics API. It plays no part
// in the decision loop; it exists so operators can compare a deployment's
// requests against what the pods actually burn.
type UsageProbe struct {
	metrics metricsv.Interface
}

func NewUsageProbe(metrics metricsv.Interface) *UsageProbe {
	return &UsageProbe{metrics: metrics}
}

// PodUsages returns per-pod usage for the deployment's pods, matched by
// the app=<deploy> label.
func (u *UsageProbe) PodUsages(ctx context.Context, namespace, deploy string) ([]PodUsage, error) {
	podMetrics, err := u.metrics.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + deploy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod metrics: %w", err)
	}

	usages := make([]PodUsage, 0, len(podMetrics.Items))
	for _, pm := range podMetrics.Items {
		usage := PodUsage{Pod: pm.Name}
		for _, container := range pm.Containers {
			cpu := container.Usage[corev1.ResourceCPU]
			mem := container.Usage[corev1.ResourceMemory]
			usage.CPUMillicores += cpu.MilliValue()
			usage.MemoryBytes += mem.Value()
		}
		usages = append(usages, usage)
	}
	return usages, nil
}
