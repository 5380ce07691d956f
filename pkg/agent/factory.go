package agent

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
)

// Agent kind discriminators. Any other kind resolves against the static
// policy registry.
const (
	KindDQN    = "dqn"
	KindGreedy = "greedy"
	KindRandom = "random"
)

// Config selects and parameterizes an agent. Catalog and Encoder tie the
// agent to the action set and state layout the runner uses.
type Config struct {
	Kind    string
	Catalog *actions.Catalog
	Encoder Encoder

	// greedy exploration rate
	Epsilon float64

	// DQN hyperparameters; zero value means DefaultDQNConfig
	DQN *DQNConfig

	Seed   int64
	Logger logr.Logger
}

// New creates an agent based on the configured kind.
func New(cfg Config) (Agent, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("agent %q: catalog is required", cfg.Kind)
	}

	switch cfg.Kind {
	case KindDQN:
		if cfg.Encoder.Version() == 0 {
			return nil, fmt.Errorf("agent %q: state encoder is required", cfg.Kind)
		}
		dqnCfg := DefaultDQNConfig(cfg.Encoder.Dim(), cfg.Catalog.Size())
		if cfg.DQN != nil {
			dqnCfg = *cfg.DQN
			dqnCfg.StateDim = cfg.Encoder.Dim()
			dqnCfg.NActions = cfg.Catalog.Size()
		}
		dqnCfg.Seed = cfg.Seed
		dqnCfg.Logger = cfg.Logger
		return NewDQNAgent(dqnCfg)
	case KindGreedy:
		return NewEpsilonGreedyAgent(cfg.Catalog.Size(), cfg.Epsilon, cfg.Seed)
	case KindRandom:
		return NewRandomAgent(cfg.Catalog.Size(), cfg.Seed)
	default:
		return NewStaticPolicy(cfg.Kind, cfg.Catalog)
	}
}
