package agent

import (
	"fmt"
	"math/rand"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/mat"
)

// DQNConfig carries the learner's hyperparameters. Build it with
// DefaultDQNConfig and override fields explicitly; NewDQNAgent rejects
// invalid combinations instead of silently correcting them.
type DQNConfig struct {
	StateDim         int
	NActions         int
	LearningRate     float64
	Gamma            float64
	EpsStart         float64
	EpsEnd           float64
	EpsDecaySteps    int
	ReplayCapacity   int
	BatchSize        int
	TargetUpdateFreq int
	Seed             int64
	Logger           logr.Logger
}

func DefaultDQNConfig(stateDim, nActions int) DQNConfig {
	return DQNConfig{
		StateDim:         stateDim,
		NActions:         nActions,
		LearningRate:     0.001,
		Gamma:            0.99,
		EpsStart:         1.0,
		EpsEnd:           0.1,
		EpsDecaySteps:    1000,
		ReplayCapacity:   10000,
		BatchSize:        32,
		TargetUpdateFreq: 500,
	}
}

func (c DQNConfig) validate() error {
	switch {
	case c.StateDim < 1:
		return fmt.Errorf("state dimension must be positive, got %d", c.StateDim)
	case c.NActions < 1:
		return fmt.Errorf("action count must be positive, got %d", c.NActions)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("gamma must be within [0, 1], got %v", c.Gamma)
	case c.EpsStart < 0 || c.EpsStart > 1 || c.EpsEnd < 0 || c.EpsEnd > 1:
		return fmt.Errorf("epsilon bounds must be within [0, 1], got start=%v end=%v", c.EpsStart, c.EpsEnd)
	case c.EpsEnd > c.EpsStart:
		return fmt.Errorf("epsilon end %v must not exceed start %v", c.EpsEnd, c.EpsStart)
	case c.EpsDecaySteps < 1:
		return fmt.Errorf("epsilon decay steps must be positive, got %d", c.EpsDecaySteps)
	case c.BatchSize < 1:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.ReplayCapacity < c.BatchSize:
		return fmt.Errorf("replay capacity %d must hold at least one batch of %d", c.ReplayCapacity, c.BatchSize)
	case c.TargetUpdateFreq < 1:
		return fmt.Errorf("target update frequency must be positive, got %d", c.TargetUpdateFreq)
	}
	return nil
}

// DQNAgent learns action values with a target network and experience
// replay, exploring under a linearly-decaying epsilon schedule.
type DQNAgent struct {
	cfg DQNConfig
	log logr.Logger

	qNet      *QNetwork
	targetNet *QNetwork
	opt       *rmsprop
	memory    *ReplayBuffer

	totalSteps int
	rng        *rand.Rand

	rewardHistory []float64
	lossHistory   []float64

	// optional checkpoint fields absent during the last Load
	absentFields []string
}

func NewDQNAgent(cfg DQNConfig) (*DQNAgent, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid DQN configuration: %w", err)
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	qNet := NewQNetwork(cfg.StateDim, cfg.NActions, rng)
	targetNet := NewQNetwork(cfg.StateDim, cfg.NActions, rng)
	targetNet.CloneFrom(qNet)

	return &DQNAgent{
		cfg:       cfg,
		log:       log,
		qNet:      qNet,
		targetNet: targetNet,
		opt:       newRMSprop(cfg.LearningRate, qNet.params()),
		memory:    NewReplayBuffer(cfg.ReplayCapacity),
		rng:       rng,
	}, nil
}

// Epsilon reports the exploration rate at the agent's current step count:
// linear decay from EpsStart to EpsEnd over EpsDecaySteps, then flat.
func (a *DQNAgent) Epsilon() float64 {
	return epsilonAt(a.totalSteps, a.cfg.EpsStart, a.cfg.EpsEnd, a.cfg.EpsDecaySteps)
}

func epsilonAt(step int, start, end float64, decaySteps int) float64 {
	if step >= decaySteps {
		return end
	}
	return start - (start-end)*(float64(step)/float64(decaySteps))
}

func (a *DQNAgent) TotalSteps() int { return a.totalSteps }

// Act selects an action index: random with probability epsilon, otherwise
// the argmax of the value network's estimates for state.
func (a *DQNAgent) Act(state []float64) int {
	if a.rng.Float64() < a.Epsilon() {
		return a.rng.Intn(a.cfg.NActions)
	}
	return a.qNet.Argmax(state)
}

// Update stores the transition, advances the step counter, trains once the
// buffer holds a full batch, and hard-syncs the target network on schedule.
func (a *DQNAgent) Update(state []float64, action int, nextState []float64, reward float64, done bool) {
	a.memory.Push(Transition{
		State:     state,
		Action:    action,
		NextState: nextState,
		Reward:    reward,
		Done:      done,
	})
	a.totalSteps++
	a.rewardHistory = append(a.rewardHistory, reward)

	if a.memory.Len() >= a.cfg.BatchSize {
		a.trainStep()
	}
	if a.totalSteps%a.cfg.TargetUpdateFreq == 0 {
		a.targetNet.CloneFrom(a.qNet)
	}
}

func (a *DQNAgent) trainStep() {
	batch := a.memory.Sample(a.rng, a.cfg.BatchSize)
	targets := a.buildTargets(batch)

	x := mat.NewDense(len(batch), a.cfg.StateDim, nil)
	for i, tr := range batch {
		for j, v := range tr.State {
			x.Set(i, j, v)
		}
	}
	f := a.qNet.forward(x)

	// MSE over the taken actions only; every other output gets zero
	// gradient.
	dOut := mat.NewDense(len(batch), a.cfg.NActions, nil)
	loss := 0.0
	for i, tr := range batch {
		diff := f.out.At(i, tr.Action) - targets[i]
		loss += diff * diff
		dOut.Set(i, tr.Action, 2*diff/float64(len(batch)))
	}
	loss /= float64(len(batch))

	a.opt.step(a.qNet.params(), a.qNet.backward(f, dOut))
	a.lossHistory = append(a.lossHistory, loss)
}

// buildTargets computes reward + gamma*max_a' Q_target(s', a') per
// transition. Terminal transitions contribute the reward alone.
func (a *DQNAgent) buildTargets(batch []Transition) []float64 {
	targets := make([]float64, len(batch))
	for i, tr := range batch {
		targets[i] = tr.Reward
		if !tr.Done {
			q := a.targetNet.Forward(tr.NextState)
			best := q[0]
			for _, v := range q[1:] {
				if v > best {
					best = v
				}
			}
			targets[i] += a.cfg.Gamma * best
		}
	}
	return targets
}

// Reset clears the diagnostic histories. Learned parameters, the replay
// buffer, and the step counter are kept.
func (a *DQNAgent) Reset() {
	a.rewardHistory = a.rewardHistory[:0]
	a.lossHistory = a.lossHistory[:0]
}

// ResetSchedule restarts the exploration schedule by zeroing the step
// counter, for continuing training in a materially different environment.
func (a *DQNAgent) ResetSchedule() {
	a.totalSteps = 0
}

func (a *DQNAgent) String() string {
	return fmt.Sprintf("DQNAgent(state_dim=%d, n_actions=%d, steps=%d)",
		a.cfg.StateDim, a.cfg.NActions, a.totalSteps)
}
