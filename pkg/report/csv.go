package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// GenerateCSV creates a CSV report
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	// Write header
	header := []string{
		"Episode",
		"Steps",
		"Status",
		"Total Reward",
		"Epsilon",
		"Duration (s)",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write episodes
	for _, ep := range report.Episodes {
		row := []string{
			fmt.Sprintf("%d", ep.Episode),
			fmt.Sprintf("%d", ep.Steps),
			string(ep.Status),
			fmt.Sprintf("%.2f", ep.TotalReward),
			fmt.Sprintf("%.3f", ep.Epsilon),
			fmt.Sprintf("%.1f", ep.Duration.Seconds()),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	// Write summary rows
	w.Write([]string{}) // Empty row
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Run", report.RunID})
	w.Write([]string{"Agent", report.AgentKind})
	w.Write([]string{"Reward Function", report.RewardName})
	w.Write([]string{"Episodes", fmt.Sprintf("%d", report.Stats.Episodes)})
	w.Write([]string{"Converged", fmt.Sprintf("%d", report.Stats.Converged)})
	w.Write([]string{"Mean Reward", fmt.Sprintf("%.2f", report.Stats.MeanReward)})
	w.Write([]string{"P50 Reward", fmt.Sprintf("%.2f", report.Stats.P50Reward)})
	w.Write([]string{"P95 Reward", fmt.Sprintf("%.2f", report.Stats.P95Reward)})
	w.Write([]string{"Best Episode", fmt.Sprintf("%.2f", report.Stats.BestReward)})
	w.Write([]string{"Worst Episode", fmt.Sprintf("%.2f", report.Stats.WorstReward)})

	return nil
}
