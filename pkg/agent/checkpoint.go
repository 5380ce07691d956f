package agent

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// checkpointVersion tags the persisted schema. The v1 core set is the
// version, dimensions, step counter, and value-network weights; every
// other field is optional and defaulted on load.
const checkpointVersion = 1

type checkpoint struct {
	Version    int         `json:"version"`
	StateDim   int         `json:"state_dim"`
	NActions   int         `json:"n_actions"`
	TotalSteps int         `json:"total_steps"`
	QWeights   [][]float64 `json:"q_weights"`

	TargetWeights [][]float64 `json:"target_weights,omitempty"`
	OptimizerSq   [][]float64 `json:"optimizer_sq,omitempty"`
	LearningRate  *float64    `json:"learning_rate,omitempty"`
	Gamma         *float64    `json:"gamma,omitempty"`
	EpsStart      *float64    `json:"eps_start,omitempty"`
	EpsEnd        *float64    `json:"eps_end,omitempty"`
	EpsDecaySteps *int        `json:"eps_decay_steps,omitempty"`
	RewardHistory []float64   `json:"reward_history,omitempty"`
	LossHistory   []float64   `json:"loss_history,omitempty"`
}

// CheckpointError reports a failed checkpoint save or load.
type CheckpointError struct {
	Path string
	Err  error
}

func (e *CheckpointError) Error() string { return fmt.Sprintf("checkpoint %s: %v", e.Path, e.Err) }

func (e *CheckpointError) Unwrap() error { return e.Err }

// Save writes the agent's full state as one JSON blob, atomically via a
// temp file rename.
func (a *DQNAgent) Save(path string) error {
	lr := a.opt.lr
	gamma := a.cfg.Gamma
	epsStart := a.cfg.EpsStart
	epsEnd := a.cfg.EpsEnd
	epsDecay := a.cfg.EpsDecaySteps

	ck := checkpoint{
		Version:       checkpointVersion,
		StateDim:      a.cfg.StateDim,
		NActions:      a.cfg.NActions,
		TotalSteps:    a.totalSteps,
		QWeights:      a.qNet.weights(),
		TargetWeights: a.targetNet.weights(),
		OptimizerSq:   a.opt.state(),
		LearningRate:  &lr,
		Gamma:         &gamma,
		EpsStart:      &epsStart,
		EpsEnd:        &epsEnd,
		EpsDecaySteps: &epsDecay,
		RewardHistory: a.rewardHistory,
		LossHistory:   a.lossHistory,
	}

	data, err := json.MarshalIndent(ck, "", "  ")
	if err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &CheckpointError{Path: path, Err: err}
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	return nil
}

// Load restores a checkpoint written by Save. A missing file is an error;
// missing optional fields fall back to defaults and are recorded. When the
// checkpoint's dimensions disagree with the configuration the checkpoint
// wins: the networks are rebuilt to its shape and a warning is logged.
func (a *DQNAgent) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return &CheckpointError{Path: path, Err: err}
	}
	var ck checkpoint
	if err := json.Unmarshal(raw, &ck); err != nil {
		return &CheckpointError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if ck.Version > checkpointVersion {
		a.log.Info("checkpoint version is newer than supported, loading best-effort",
			"got", ck.Version, "supported", checkpointVersion)
	}
	if len(ck.QWeights) == 0 || ck.StateDim < 1 || ck.NActions < 1 {
		return &CheckpointError{Path: path, Err: fmt.Errorf("missing core fields (state_dim=%d, n_actions=%d, %d weight tensors)",
			ck.StateDim, ck.NActions, len(ck.QWeights))}
	}

	if ck.NActions != a.cfg.NActions || ck.StateDim != a.cfg.StateDim {
		a.log.Info("checkpoint dimensions differ from configuration, adopting the checkpoint's",
			"checkpointStateDim", ck.StateDim, "configuredStateDim", a.cfg.StateDim,
			"checkpointActions", ck.NActions, "configuredActions", a.cfg.NActions)
		a.cfg.StateDim = ck.StateDim
		a.cfg.NActions = ck.NActions
		a.qNet = NewQNetwork(ck.StateDim, ck.NActions, rand.New(rand.NewSource(a.cfg.Seed)))
		a.targetNet = NewQNetwork(ck.StateDim, ck.NActions, rand.New(rand.NewSource(a.cfg.Seed)))
	}
	if err := a.qNet.setWeights(ck.QWeights); err != nil {
		return &CheckpointError{Path: path, Err: fmt.Errorf("value network: %w", err)}
	}

	var absent []string

	if ck.LearningRate != nil {
		a.cfg.LearningRate = *ck.LearningRate
	} else {
		absent = append(absent, "learning_rate")
	}
	if ck.Gamma != nil {
		a.cfg.Gamma = *ck.Gamma
	} else {
		absent = append(absent, "gamma")
	}
	if ck.EpsStart != nil {
		a.cfg.EpsStart = *ck.EpsStart
	} else {
		absent = append(absent, "eps_start")
	}
	if ck.EpsEnd != nil {
		a.cfg.EpsEnd = *ck.EpsEnd
	} else {
		absent = append(absent, "eps_end")
	}
	if ck.EpsDecaySteps != nil {
		a.cfg.EpsDecaySteps = *ck.EpsDecaySteps
	} else {
		absent = append(absent, "eps_decay_steps")
	}

	if ck.TargetWeights != nil {
		if err := a.targetNet.setWeights(ck.TargetWeights); err != nil {
			a.log.Info("malformed target network in checkpoint, resyncing from value network", "err", err.Error())
			a.targetNet.CloneFrom(a.qNet)
		}
	} else {
		absent = append(absent, "target_weights")
		a.targetNet.CloneFrom(a.qNet)
	}

	a.opt = newRMSprop(a.cfg.LearningRate, a.qNet.params())
	if ck.OptimizerSq != nil {
		if err := a.opt.setState(ck.OptimizerSq); err != nil {
			a.log.Info("malformed optimizer state in checkpoint, starting fresh", "err", err.Error())
		}
	} else {
		absent = append(absent, "optimizer_sq")
	}

	if ck.RewardHistory != nil {
		a.rewardHistory = ck.RewardHistory
	} else {
		absent = append(absent, "reward_history")
		a.rewardHistory = nil
	}
	if ck.LossHistory != nil {
		a.lossHistory = ck.LossHistory
	} else {
		absent = append(absent, "loss_history")
		a.lossHistory = nil
	}

	a.totalSteps = ck.TotalSteps
	a.absentFields = absent
	if len(absent) > 0 {
		a.log.Info("checkpoint omitted optional fields, using defaults", "fields", absent)
	}
	return nil
}
