package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// PromObserver derives the same observation the cluster API would give
// from kube-state-metrics series. Useful when the trainer runs outside the
// cluster network and only the monitoring stack is reachable.
type PromObserver struct {
	client promv1.API
	url    string
	log    logr.Logger
}

func NewPromObserver(url string, log logr.Logger) (*PromObserver, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &PromObserver{client: promv1.NewAPI(client), url: url, log: log}, nil
}

// Observe counts pods via kube-state-metrics. Empty query results mean an
// empty population, not an error.
func (o *PromObserver) Observe(ctx context.Context, namespace, deploy string) (models.Observation, error) {
	total, err := o.count(ctx, fmt.Sprintf(
		`count(kube_pod_labels{namespace=%q,label_app=%q})`, namespace, deploy))
	if err != nil {
		return models.Observation{}, fmt.Errorf("total query failed: %w", err)
	}
	pending, err := o.count(ctx, fmt.Sprintf(
		`count(kube_pod_status_phase{namespace=%q,phase="Pending",pod=~"%s-.*"} == 1)`, namespace, deploy))
	if err != nil {
		return models.Observation{}, fmt.Errorf("pending query failed: %w", err)
	}
	ready, err := o.count(ctx, fmt.Sprintf(
		`count(kube_pod_status_ready{namespace=%q,condition="true",pod=~"%s-.*"} == 1)`, namespace, deploy))
	if err != nil {
		return models.Observation{}, fmt.Errorf("ready query failed: %w", err)
	}

	return models.Observation{Ready: ready, Pending: pending, Total: total}, nil
}

// CurrentRequests reads the deployment's requests and replica count from
// kube-state-metrics. CPU comes back in cores and memory in bytes; both
// are re-serialized as quantity strings.
func (o *PromObserver) CurrentRequests(ctx context.Context, namespace, deploy string) (models.ResourceState, error) {
	cpuCores, err := o.first(ctx, fmt.Sprintf(
		`max(kube_pod_container_resource_requests{namespace=%q,resource="cpu",pod=~"%s-.*"})`, namespace, deploy))
	if err != nil {
		return models.ResourceState{}, fmt.Errorf("CPU request query failed: %w", err)
	}
	memBytes, err := o.first(ctx, fmt.Sprintf(
		`max(kube_pod_container_resource_requests{namespace=%q,resource="memory",pod=~"%s-.*"})`, namespace, deploy))
	if err != nil {
		return models.ResourceState{}, fmt.Errorf("memory request query failed: %w", err)
	}
	replicas, err := o.count(ctx, fmt.Sprintf(
		`kube_deployment_spec_replicas{namespace=%q,deployment=%q}`, namespace, deploy))
	if err != nil {
		return models.ResourceState{}, fmt.Errorf("replica query failed: %w", err)
	}

	return models.ResourceState{
		CPU:      actions.FormatCPU(int64(cpuCores*1000+0.5), "m"),
		Memory:   actions.FormatMemory(int64(memBytes), "Mi"),
		Replicas: replicas,
	}, nil
}

// IsAvailable reports whether the Prometheus endpoint answers queries.
func (o *PromObserver) IsAvailable(ctx context.Context) bool {
	_, _, err := o.client.Query(ctx, "up", time.Now())
	return err == nil
}

func (o *PromObserver) count(ctx context.Context, query string) (int, error) {
	v, err := o.first(ctx, query)
	if err != nil {
		return 0, err
	}
	return int(v + 0.5), nil
}

// first returns the first sample of an instant query, or 0 when the result
// is empty.
func (o *PromObserver) first(ctx context.Context, query string) (float64, error) {
	result, warnings, err := o.client.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	if len(warnings) > 0 {
		o.log.Info("prometheus warnings", "query", query, "warnings", warnings)
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return 0, fmt.Errorf("unexpected result type %s for query: %s", result.Type(), query)
	}
	if len(vector) == 0 {
		return 0, nil
	}
	return float64(vector[0].Value), nil
}
