package models

// ActionRecord is the serialized form of an action as written to the step log
type ActionRecord struct {
	Type  string `json:"type"`
	Step  string `json:"step,omitempty"`
	Delta int    `json:"delta,omitempty"`
}

// FieldChange describes one field mutated by an applied action
type FieldChange struct {
	Path   string `json:"path"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// ActionInfo records the outcome of applying an action to a trace.
// Changed is false for noop and for blocked actions; Blocked is true
// iff the safeguard validator rejected the action.
type ActionInfo struct {
	Changed bool          `json:"changed"`
	Blocked bool          `json:"blocked,omitempty"`
	Op      string        `json:"op"`
	Deploy  string        `json:"deploy,omitempty"`
	Error   string        `json:"error,omitempty"`
	Diff    []FieldChange `json:"diff,omitempty"`
}

// StepRecord is one line of the append-only step log
type StepRecord struct {
	Timestamp  string       `json:"timestamp"`
	SimName    string       `json:"sim_name"`
	SimUID     string       `json:"sim_uid,omitempty"`
	Namespace  string       `json:"namespace"`
	TraceIn    string       `json:"trace_in"`
	TraceOut   string       `json:"trace_out"`
	Obs        Observation  `json:"obs"`
	Action     ActionRecord `json:"action"`
	ActionInfo ActionInfo   `json:"action_info"`
	Reward     float64      `json:"reward"`
	DurationS  int          `json:"duration_s"`
	Seed       int64        `json:"seed"`
}

// StepSummary is the running aggregate rewritten after every step
type StepSummary struct {
	Steps        []StepRecord `json:"steps"`
	TotalSteps   int          `json:"total_steps"`
	TotalRewards float64      `json:"total_rewards"`
}
