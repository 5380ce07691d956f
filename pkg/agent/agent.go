// Package agent implements the decision policies that drive remediation
// steps: a DQN learner with replay buffer and target network, an
// epsilon-greedy bandit, a uniform-random baseline, and static heuristic
// policies. All of them select actions by catalog index.
package agent

// Agent selects actions for encoded states and learns from the resulting
// transitions. Non-learning policies ignore the Update arguments.
type Agent interface {
	Act(state []float64) int
	Update(state []float64, action int, nextState []float64, reward float64, done bool)
	Reset()
}

// Checkpointer is implemented by agents whose learned state can be
// persisted and restored.
type Checkpointer interface {
	Save(path string) error
	Load(path string) error
}
