package models

// Observation holds pod counts for the monitored deployment at one point in time
type Observation struct {
	Ready   int `json:"ready"`
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// Converged reports whether the observed population matches the target:
// every pod ready, none pending, count exactly at target
func (o Observation) Converged(target int) bool {
	return o.Ready == target && o.Total == target && o.Pending == 0
}

// ResourceState holds the current per-pod requests and replica count
// for the deployment under test
type ResourceState struct {
	CPU      string `json:"cpu"`
	Memory   string `json:"memory"`
	Replicas int    `json:"replicas"`
}
