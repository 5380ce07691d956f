package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

const (
	stepLogName = "step.jsonl"
	summaryName = "summary.json"
)

// StepLog is the write-only run log: an append-only JSON-lines file with
// one record per executed step, plus a running summary rewritten after
// every append. Nothing in the loop ever reads these back.
type StepLog struct {
	dir string
}

// NewStepLog logs into dir, creating it on first append.
func NewStepLog(dir string) *StepLog {
	return &StepLog{dir: dir}
}

// Dir returns the directory the log writes into.
func (l *StepLog) Dir() string {
	return l.dir
}

// Record appends rec to the step log and folds it into the summary.
func (l *StepLog) Record(rec models.StepRecord) error {
	if err := l.append(rec); err != nil {
		return err
	}
	return l.updateSummary(rec)
}

func (l *StepLog) append(rec models.StepRecord) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir %s: %w", l.dir, err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode step record: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(l.dir, stepLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open step log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append step record: %w", err)
	}
	return nil
}

func (l *StepLog) updateSummary(rec models.StepRecord) error {
	path := filepath.Join(l.dir, summaryName)

	var summary models.StepSummary
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &summary); err != nil {
			return fmt.Errorf("failed to decode existing summary: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// first step of the run
	default:
		return fmt.Errorf("failed to read summary: %w", err)
	}

	summary.Steps = append(summary.Steps, rec)
	summary.TotalSteps = len(summary.Steps)
	summary.TotalRewards = 0
	for _, s := range summary.Steps {
		summary.TotalRewards += s.Reward
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
