package runner

import (
	"fmt"
	"math"
	"sort"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// RunStats summarizes the episode returns of one training run.
type RunStats struct {
	Episodes    int
	Converged   int
	MeanReward  float64
	P50Reward   float64
	P95Reward   float64
	BestReward  float64
	WorstReward float64
}

// ComputeRunStats aggregates per-episode stats into run-level numbers.
func ComputeRunStats(stats []models.EpisodeStat) (RunStats, error) {
	if len(stats) == 0 {
		return RunStats{}, fmt.Errorf("no episodes provided")
	}

	rewards := make([]float64, len(stats))
	converged := 0
	for i, s := range stats {
		rewards[i] = s.TotalReward
		if s.Status == models.EpisodeTerminated {
			converged++
		}
	}
	sort.Float64s(rewards)

	sum := 0.0
	for _, r := range rewards {
		sum += r
	}

	return RunStats{
		Episodes:    len(stats),
		Converged:   converged,
		MeanReward:  sum / float64(len(rewards)),
		P50Reward:   percentileOf(rewards, 50),
		P95Reward:   percentileOf(rewards, 95),
		BestReward:  rewards[len(rewards)-1],
		WorstReward: rewards[0],
	}, nil
}

// percentileOf computes the Nth percentile of sorted values with linear
// interpolation between ranks.
func percentileOf(sorted []float64, percentile float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	rank := (percentile / 100.0) * (n - 1)

	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
