package trace

// SyntheticSpec describes a single-deployment trace to generate.
type SyntheticSpec struct {
	Deploy      string
	Namespace   string
	Image       string
	CPU         string
	Memory      string
	Replicas    int
	TS          int64
	Description string
}

// Synthetic builds a minimal version-2 trace containing one Deployment
// with the given requests. Used by the trace tooling to produce
// misconfigured starting states and by tests as a fixture.
func Synthetic(spec SyntheticSpec) Document {
	if spec.Deploy == "" {
		spec.Deploy = "web"
	}
	if spec.Namespace == "" {
		spec.Namespace = "default"
	}
	if spec.Image == "" {
		spec.Image = "ghcr.io/example/web:1.0"
	}
	if spec.TS == 0 {
		spec.TS = 1730390400
	}

	deployment := map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]any{
			"name":      spec.Deploy,
			"namespace": spec.Namespace,
		},
		"spec": map[string]any{
			"replicas": spec.Replicas,
			"selector": map[string]any{
				"matchLabels": map[string]any{"app": spec.Deploy},
			},
			"template": map[string]any{
				"metadata": map[string]any{
					"labels": map[string]any{"app": spec.Deploy},
				},
				"spec": map[string]any{
					"containers": []any{
						map[string]any{
							"name":  spec.Deploy,
							"image": spec.Image,
							"resources": map[string]any{
								"requests": map[string]any{
									"cpu":    spec.CPU,
									"memory": spec.Memory,
								},
							},
						},
					},
				},
			},
		},
	}

	doc := Document{
		"version":        2,
		"config":         map[string]any{},
		"pod_lifecycles": map[string]any{},
		"index":          map[string]any{},
		"events": []any{
			map[string]any{
				"ts":           spec.TS,
				"applied_objs": []any{deployment},
				"deleted_objs": []any{},
			},
		},
	}
	if spec.Description != "" {
		doc["metadata"] = map[string]any{"description": spec.Description}
	}
	return doc
}
