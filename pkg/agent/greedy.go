package agent

import (
	"fmt"
	"math/rand"
)

// EpsilonGreedyAgent is a stateless bandit baseline: it keeps an
// incremental average reward per action and explores with a fixed epsilon.
// The state vector is ignored.
type EpsilonGreedyAgent struct {
	nActions int
	epsilon  float64
	counts   []int
	values   []float64
	rng      *rand.Rand
}

func NewEpsilonGreedyAgent(nActions int, epsilon float64, seed int64) (*EpsilonGreedyAgent, error) {
	if nActions < 1 {
		return nil, fmt.Errorf("action count must be positive, got %d", nActions)
	}
	if epsilon < 0 || epsilon > 1 {
		return nil, fmt.Errorf("epsilon must be within [0, 1], got %v", epsilon)
	}
	return &EpsilonGreedyAgent{
		nActions: nActions,
		epsilon:  epsilon,
		counts:   make([]int, nActions),
		values:   make([]float64, nActions),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Act picks the best-valued action, breaking ties randomly, or explores
// with probability epsilon.
func (a *EpsilonGreedyAgent) Act(_ []float64) int {
	if a.rng.Float64() < a.epsilon {
		return a.rng.Intn(a.nActions)
	}

	best := a.values[0]
	for _, v := range a.values[1:] {
		if v > best {
			best = v
		}
	}
	var ties []int
	for i, v := range a.values {
		if v == best {
			ties = append(ties, i)
		}
	}
	return ties[a.rng.Intn(len(ties))]
}

// Update folds the reward into the action's incremental average.
func (a *EpsilonGreedyAgent) Update(_ []float64, action int, _ []float64, reward float64, _ bool) {
	a.counts[action]++
	n := float64(a.counts[action])
	a.values[action] += (reward - a.values[action]) / n
}

// Reset clears all counts and value estimates.
func (a *EpsilonGreedyAgent) Reset() {
	for i := range a.counts {
		a.counts[i] = 0
		a.values[i] = 0
	}
}

func (a *EpsilonGreedyAgent) String() string {
	return fmt.Sprintf("EpsilonGreedyAgent(n_actions=%d, epsilon=%v)", a.nActions, a.epsilon)
}
