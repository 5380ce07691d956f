package agent

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
)

// RandomAgent selects uniformly at random. It learns nothing but tracks
// its reward history so baseline runs can still be compared.
type RandomAgent struct {
	nActions      int
	rng           *rand.Rand
	rewardHistory []float64
}

func NewRandomAgent(nActions int, seed int64) (*RandomAgent, error) {
	if nActions < 1 {
		return nil, fmt.Errorf("action count must be positive, got %d", nActions)
	}
	return &RandomAgent{nActions: nActions, rng: rand.New(rand.NewSource(seed))}, nil
}

func (a *RandomAgent) Act(_ []float64) int {
	return a.rng.Intn(a.nActions)
}

func (a *RandomAgent) Update(_ []float64, _ int, _ []float64, reward float64, _ bool) {
	a.rewardHistory = append(a.rewardHistory, reward)
}

func (a *RandomAgent) Reset() {
	a.rewardHistory = nil
}

type randomCheckpoint struct {
	NActions      int       `json:"n_actions"`
	RewardHistory []float64 `json:"reward_history"`
}

func (a *RandomAgent) Save(path string) error {
	data, err := json.MarshalIndent(randomCheckpoint{
		NActions:      a.nActions,
		RewardHistory: a.rewardHistory,
	}, "", "  ")
	if err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	return nil
}

func (a *RandomAgent) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	var ck randomCheckpoint
	if err := json.Unmarshal(raw, &ck); err != nil {
		return &CheckpointError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if ck.NActions > 0 {
		a.nActions = ck.NActions
	}
	a.rewardHistory = ck.RewardHistory
	return nil
}

func (a *RandomAgent) String() string {
	return fmt.Sprintf("RandomAgent(n_actions=%d)", a.nActions)
}
