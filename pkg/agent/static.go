package agent

import (
	"fmt"
	"sort"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
)

// StaticPolicy maps a state straight to an action index with no learning.
type StaticPolicy struct {
	name   string
	choose func(state []float64) int
}

// staticPolicies builds each named policy against the given catalog so the
// chosen indices always line up with the configured action set.
var staticPolicies = map[string]func(c *actions.Catalog) (func([]float64) int, error){
	"noop": func(c *actions.Catalog) (func([]float64) int, error) {
		idx, err := indexOf(c, actions.Noop)
		if err != nil {
			return nil, err
		}
		return func([]float64) int { return idx }, nil
	},
	// Pending pods usually mean the per-pod CPU request no longer fits a
	// node share; bumping CPU is the first remediation to try.
	"heuristic": func(c *actions.Catalog) (func([]float64) int, error) {
		noop, err := indexOf(c, actions.Noop)
		if err != nil {
			return nil, err
		}
		bump, err := indexOf(c, actions.BumpCPU)
		if err != nil {
			return nil, err
		}
		return func(state []float64) int {
			if len(state) > IdxPending && state[IdxPending] > 0 {
				return bump
			}
			return noop
		}, nil
	},
	"bump_cpu": func(c *actions.Catalog) (func([]float64) int, error) {
		idx, err := indexOf(c, actions.BumpCPU)
		if err != nil {
			return nil, err
		}
		return func([]float64) int { return idx }, nil
	},
	"bump_mem": func(c *actions.Catalog) (func([]float64) int, error) {
		idx, err := indexOf(c, actions.BumpMem)
		if err != nil {
			return nil, err
		}
		return func([]float64) int { return idx }, nil
	},
	"scale_replicas": func(c *actions.Catalog) (func([]float64) int, error) {
		idx, err := indexOf(c, actions.ScaleUp)
		if err != nil {
			return nil, err
		}
		return func([]float64) int { return idx }, nil
	},
}

func NewStaticPolicy(name string, catalog *actions.Catalog) (*StaticPolicy, error) {
	build, ok := staticPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (available: %v)", name, StaticNames())
	}
	choose, err := build(catalog)
	if err != nil {
		return nil, fmt.Errorf("policy %q: %w", name, err)
	}
	return &StaticPolicy{name: name, choose: choose}, nil
}

// StaticNames lists the available policy names, sorted.
func StaticNames() []string {
	names := make([]string, 0, len(staticPolicies))
	for name := range staticPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *StaticPolicy) Act(state []float64) int { return p.choose(state) }

func (p *StaticPolicy) Update(_ []float64, _ int, _ []float64, _ float64, _ bool) {}

func (p *StaticPolicy) Reset() {}

func (p *StaticPolicy) String() string {
	return fmt.Sprintf("StaticPolicy(%s)", p.name)
}

func indexOf(c *actions.Catalog, kind actions.Kind) (int, error) {
	for i, act := range c.Actions() {
		if act.Kind == kind {
			return i, nil
		}
	}
	return 0, fmt.Errorf("action %q is not in the catalog", kind)
}
