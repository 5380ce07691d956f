package models

import "time"

// TrainingRun represents one invocation of the training loop
type TrainingRun struct {
	ID          string
	ClusterID   string
	Namespace   string
	Deploy      string
	AgentKind   string
	RewardName  string
	Episodes    int
	TotalReward float64
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// TrainingStep is one persisted step of a training run
type TrainingStep struct {
	ID         int64
	RunID      string
	Episode    int
	StepIndex  int
	ActionType string
	Blocked    bool
	Reward     float64
	Obs        Observation
	CreatedAt  time.Time
}
