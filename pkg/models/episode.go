package models

import "time"

// EpisodeStatus represents the terminal state of an episode
type EpisodeStatus string

const (
	EpisodeRunning    EpisodeStatus = "RUNNING"
	EpisodeTerminated EpisodeStatus = "TERMINATED"
	EpisodeTruncated  EpisodeStatus = "TRUNCATED"
	EpisodeAborted    EpisodeStatus = "ABORTED"
)

// EpisodeResult summarizes one finished episode
type EpisodeResult struct {
	Status        EpisodeStatus `json:"status"`
	StepsExecuted int           `json:"steps_executed"`
	TotalReward   float64       `json:"total_reward"`
	Converged     bool          `json:"converged"`
	Records       []StepRecord  `json:"records,omitempty"`
}

// EpisodeStat is one row of a training run report
type EpisodeStat struct {
	Episode     int
	Steps       int
	Status      EpisodeStatus
	TotalReward float64
	Epsilon     float64
	Duration    time.Duration
}
