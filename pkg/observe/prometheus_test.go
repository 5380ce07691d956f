package observe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

// fakeProm answers the instant-query API with canned vectors keyed by
// which metric the query touches.
func fakeProm(t *testing.T, values map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.FormValue("query")
		w.Header().Set("Content-Type", "application/json")

		for key, val := range values {
			if strings.Contains(query, key) {
				fmt.Fprintf(w,
					`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,%q]}]}}`,
					val)
				return
			}
		}
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
	}))
}

func TestPromObserverObserve(t *testing.T) {
	srv := fakeProm(t, map[string]string{
		"kube_pod_labels":       "4",
		"kube_pod_status_phase": "1",
		"kube_pod_status_ready": "2",
	})
	defer srv.Close()

	o, err := NewPromObserver(srv.URL, logr.Discard())
	if err != nil {
		t.Fatalf("NewPromObserver failed: %v", err)
	}
	obs, err := o.Observe(context.Background(), "virtual-default", "web")
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if obs.Ready != 2 || obs.Pending != 1 || obs.Total != 4 {
		t.Errorf("Observation = %+v, want ready=2 pending=1 total=4", obs)
	}
}

func TestPromObserverEmptyResultsAreZero(t *testing.T) {
	srv := fakeProm(t, nil)
	defer srv.Close()

	o, _ := NewPromObserver(srv.URL, logr.Discard())
	obs, err := o.Observe(context.Background(), "virtual-default", "gone")
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if obs.Ready != 0 || obs.Pending != 0 || obs.Total != 0 {
		t.Errorf("Observation = %+v, want all zeros", obs)
	}
}

func TestPromObserverCurrentRequests(t *testing.T) {
	srv := fakeProm(t, map[string]string{
		`resource="cpu"`:              "0.5",
		`resource="memory"`:           "536870912",
		"kube_deployment_spec_replicas": "3",
	})
	defer srv.Close()

	o, _ := NewPromObserver(srv.URL, logr.Discard())
	state, err := o.CurrentRequests(context.Background(), "virtual-default", "web")
	if err != nil {
		t.Fatalf("CurrentRequests failed: %v", err)
	}
	if state.CPU != "500m" || state.Memory != "512Mi" || state.Replicas != 3 {
		t.Errorf("ResourceState = %+v, want 500m/512Mi/3", state)
	}
}

func TestPromObserverIsAvailable(t *testing.T) {
	srv := fakeProm(t, map[string]string{"up": "1"})
	o, _ := NewPromObserver(srv.URL, logr.Discard())
	if !o.IsAvailable(context.Background()) {
		t.Error("Expected the test server to be available")
	}
	srv.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	o, _ = NewPromObserver(broken.URL, logr.Discard())
	if o.IsAvailable(context.Background()) {
		t.Error("A 500ing endpoint should not count as available")
	}
}
