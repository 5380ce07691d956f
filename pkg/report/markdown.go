package report

import (
	"fmt"
	"io"
	"text/template"
	"time"
)

const markdownTemplate = `# Training Run Report

- **Run:** {{.RunID}}
- **Cluster:** {{if .ClusterName}}{{.ClusterName}}{{else}}unknown{{end}}
- **Namespace:** {{.Namespace}}
- **Deployment:** {{.Deploy}}
- **Agent:** {{.AgentKind}}
- **Reward:** {{.RewardName}}
- **Generated:** {{.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC

## Summary

| Metric | Value |
|--------|-------|
| Episodes | {{.Stats.Episodes}} |
| Converged | {{.Stats.Converged}} |
| Mean reward | {{printf "%.2f" .Stats.MeanReward}} |
| P50 reward | {{printf "%.2f" .Stats.P50Reward}} |
| P95 reward | {{printf "%.2f" .Stats.P95Reward}} |
| Best episode | {{printf "%.2f" .Stats.BestReward}} |
| Worst episode | {{printf "%.2f" .Stats.WorstReward}} |

## Episodes

| Episode | Steps | Status | Reward | Epsilon | Duration |
|---------|-------|--------|--------|---------|----------|
{{range .Episodes}}| {{.Episode}} | {{.Steps}} | {{.Status}} | {{printf "%.2f" .TotalReward}} | {{printf "%.3f" .Epsilon}} | {{seconds .Duration}} |
{{end}}`

// GenerateMarkdown creates a Markdown report
func GenerateMarkdown(report *Report, writer io.Writer) error {
	// Parse template
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"seconds": func(d time.Duration) string {
			return fmt.Sprintf("%.1fs", d.Seconds())
		},
	}).Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	// Execute template
	if err := tmpl.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}
