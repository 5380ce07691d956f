package report

import (
	"fmt"
	"io"
	"time"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/runner"
)

// Format represents the output format
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Report contains all data for generating a training run report
type Report struct {
	RunID       string
	ClusterName string
	Namespace   string
	Deploy      string
	AgentKind   string
	RewardName  string
	GeneratedAt time.Time
	Episodes    []models.EpisodeStat
	Stats       runner.RunStats
}

// Reporter renders training run reports
type Reporter struct {
	format Format
}

// New creates a new reporter
func New(format Format) *Reporter {
	return &Reporter{
		format: format,
	}
}

// Generate assembles a report from a finished run
func (r *Reporter) Generate(run *models.TrainingRun, episodes []models.EpisodeStat) (*Report, error) {
	stats, err := runner.ComputeRunStats(episodes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute run stats: %w", err)
	}

	return &Report{
		RunID:       run.ID,
		ClusterName: run.ClusterID,
		Namespace:   run.Namespace,
		Deploy:      run.Deploy,
		AgentKind:   run.AgentKind,
		RewardName:  run.RewardName,
		GeneratedAt: time.Now().UTC(),
		Episodes:    episodes,
		Stats:       stats,
	}, nil
}

// Write renders the report in the configured format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatCSV:
		return GenerateCSV(report, w)
	case FormatMarkdown:
		return GenerateMarkdown(report, w)
	default:
		return fmt.Errorf("unsupported report format: %s", r.format)
	}
}
