package trace

import (
	"fmt"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Document is a simulation trace as loaded from disk: a loosely typed
// msgpack/JSON map. Fields this package does not know about must survive
// a load/save round trip untouched, so the document is never forced into
// a fixed struct.
type Document map[string]any

// Version returns the trace schema version, 0 when absent.
func (d Document) Version() int {
	v, _ := asInt(d["version"])
	return v
}

// Events returns the event list. Entries that are not maps are skipped.
func (d Document) Events() []map[string]any {
	raw, ok := d["events"].([]any)
	if !ok {
		return nil
	}
	events := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := asMap(e); ok {
			events = append(events, m)
		}
	}
	return events
}

// Deployment wraps one Deployment manifest found in a trace event, giving
// typed access to the fields the action set mutates.
type Deployment struct {
	obj map[string]any
}

// Deployments returns every Deployment named name across all applied
// objects in all events, in document order.
func (d Document) Deployments(name string) []*Deployment {
	var found []*Deployment
	for _, event := range d.Events() {
		applied, ok := event["applied_objs"].([]any)
		if !ok {
			continue
		}
		for _, raw := range applied {
			obj, ok := asMap(raw)
			if !ok {
				continue
			}
			if kind, _ := obj["kind"].(string); kind != "Deployment" {
				continue
			}
			meta, _ := asMap(obj["metadata"])
			if objName, _ := meta["name"].(string); objName == name {
				found = append(found, &Deployment{obj: obj})
			}
		}
	}
	return found
}

// FindDeployment locates the first Deployment named name.
func (d Document) FindDeployment(name string) (*Deployment, bool) {
	deps := d.Deployments(name)
	if len(deps) == 0 {
		return nil, false
	}
	return deps[0], true
}

// CurrentState extracts the deployment's resource requests and replica
// count. Absent values default to zero quantities, matching what the
// safeguard checks expect for an unconfigured workload.
func (d Document) CurrentState(deploy string) models.ResourceState {
	state := models.ResourceState{CPU: "0m", Memory: "0Mi"}
	dep, ok := d.FindDeployment(deploy)
	if !ok {
		return state
	}
	state.Replicas = dep.Replicas()
	if cpu := dep.Request("cpu"); cpu != "" {
		state.CPU = cpu
	}
	if mem := dep.Request("memory"); mem != "" {
		state.Memory = mem
	}
	return state
}

// Clone returns a deep copy of the document so callers can diff a
// mutation against the original.
func (d Document) Clone() Document {
	return deepCopy(map[string]any(d)).(map[string]any)
}

func (dep *Deployment) spec() map[string]any {
	spec, ok := asMap(dep.obj["spec"])
	if !ok {
		spec = map[string]any{}
		dep.obj["spec"] = spec
	}
	return spec
}

// Replicas returns spec.replicas, 0 when unset.
func (dep *Deployment) Replicas() int {
	n, _ := asInt(dep.spec()["replicas"])
	return n
}

// SetReplicas overwrites spec.replicas.
func (dep *Deployment) SetReplicas(n int) {
	dep.spec()["replicas"] = n
}

// Request returns the named resource request of the first container,
// "" when unset.
func (dep *Deployment) Request(resource string) string {
	requests, ok := dep.requests(false)
	if !ok {
		return ""
	}
	v, _ := requests[resource].(string)
	return v
}

// SetRequest sets the named resource request on the first container,
// creating the intermediate maps as needed.
func (dep *Deployment) SetRequest(resource, value string) bool {
	requests, ok := dep.requests(true)
	if !ok {
		return false
	}
	requests[resource] = value
	return true
}

// requests walks spec.template.spec.containers[0].resources.requests.
// With create set, missing resources/requests maps are created; a missing
// container list is never invented.
func (dep *Deployment) requests(create bool) (map[string]any, bool) {
	template, ok := asMap(dep.spec()["template"])
	if !ok {
		return nil, false
	}
	podSpec, ok := asMap(template["spec"])
	if !ok {
		return nil, false
	}
	containers, ok := podSpec["containers"].([]any)
	if !ok || len(containers) == 0 {
		return nil, false
	}
	first, ok := asMap(containers[0])
	if !ok {
		return nil, false
	}
	resources, ok := asMap(first["resources"])
	if !ok {
		if !create {
			return nil, false
		}
		resources = map[string]any{}
		first["resources"] = resources
	}
	requests, ok := asMap(resources["requests"])
	if !ok {
		if !create {
			return nil, false
		}
		requests = map[string]any{}
		resources["requests"] = requests
	}
	return requests, true
}

// asMap narrows a decoded value to a string-keyed map. msgpack decodes
// maps with non-string keys as map[any]any, which trace events never use.
func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asInt coerces the numeric types the msgpack and JSON decoders produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

// String gives a short human-readable summary for CLI output.
func (d Document) String() string {
	return fmt.Sprintf("trace{version=%d events=%d}", d.Version(), len(d.Events()))
}
