package actions

import (
	"fmt"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Kind enumerates the discrete action types.
type Kind string

const (
	Noop      Kind = "noop"
	BumpCPU   Kind = "bump_cpu"
	BumpMem   Kind = "bump_mem"
	ScaleUp   Kind = "scale_up"
	ReduceCPU Kind = "reduce_cpu"
	ReduceMem Kind = "reduce_mem"
	ScaleDown Kind = "scale_down"
)

// Default step sizes for the catalog actions.
const (
	DefaultCPUStep      = "500m"
	DefaultMemStep      = "256Mi"
	DefaultReplicaDelta = 1
)

// Action is one immutable member of the catalog. Step carries the quantity
// for CPU/memory actions, Delta the replica change for scale actions.
type Action struct {
	Kind  Kind
	Step  string
	Delta int
}

// Record converts the action to its step-log form.
func (a Action) Record() models.ActionRecord {
	return models.ActionRecord{
		Type:  string(a.Kind),
		Step:  a.Step,
		Delta: a.Delta,
	}
}

func (a Action) String() string {
	switch a.Kind {
	case BumpCPU, BumpMem, ReduceCPU, ReduceMem:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Step)
	case ScaleUp, ScaleDown:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Delta)
	default:
		return string(a.Kind)
	}
}

// Catalog is the fixed, indexed action set the agent selects from.
// Index 0 is always noop. Size 4 covers the growth actions; size 7 adds
// the reduction actions.
type Catalog struct {
	actions []Action
}

// NewCatalog builds the catalog for the given action count.
func NewCatalog(n int) (*Catalog, error) {
	base := []Action{
		{Kind: Noop},
		{Kind: BumpCPU, Step: DefaultCPUStep},
		{Kind: BumpMem, Step: DefaultMemStep},
		{Kind: ScaleUp, Delta: DefaultReplicaDelta},
	}
	switch n {
	case 4:
		return &Catalog{actions: base}, nil
	case 7:
		return &Catalog{actions: append(base,
			Action{Kind: ReduceCPU, Step: DefaultCPUStep},
			Action{Kind: ReduceMem, Step: DefaultMemStep},
			Action{Kind: ScaleDown, Delta: DefaultReplicaDelta},
		)}, nil
	default:
		return nil, fmt.Errorf("unsupported action count %d: catalog supports 4 or 7 actions", n)
	}
}

// Size returns the number of actions in the catalog.
func (c *Catalog) Size() int {
	return len(c.actions)
}

// At resolves an action index. Unknown indexes are a configuration error,
// never silently defaulted.
func (c *Catalog) At(index int) (Action, error) {
	if index < 0 || index >= len(c.actions) {
		return Action{}, fmt.Errorf("unknown action index %d: catalog has %d actions", index, len(c.actions))
	}
	return c.actions[index], nil
}

// Actions returns a copy of the ordered action set.
func (c *Catalog) Actions() []Action {
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}
