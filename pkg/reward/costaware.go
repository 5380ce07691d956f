package reward

import (
	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
)

// Cost model constants. Excess requests are measured against the
// reference floor a well-sized pod needs, normalized by the share of
// simulated node capacity each replica can claim.
const (
	cpuFloorMillicores = 500
	memFloorBytes      = 256 * 1024 * 1024

	healthyBase        = 0.9
	healthyCostWeight  = 0.6
	pendingCostWeight  = 0.08
	idleCostWeight     = 0.12
	replicaWasteWeight = 0.5

	blockedPenalty = 0.12
)

// costParts is the cost_aware breakdown, kept for diagnostics and tests.
type costParts struct {
	Health     float64
	Cost       float64
	Healthy    bool
	CPUPerPodM int64
	MemPerPodB int64
	// Score is the pre-clamp reward value.
	Score float64
}

// CostAware trades pod health against the cost of the requests producing
// it: a healthy but wasteful configuration earns less than a healthy lean
// one, and an unhealthy one is graded by how far from ready it is.
func CostAware(in Input) float64 {
	return clamp(costAware(in).Score, -1.0, 1.0)
}

// CostAwareV2 is the stepwise variant of CostAware: it additionally
// subtracts the configured per-step penalty and a fixed penalty when the
// step's action was blocked by the safeguards.
func CostAwareV2(in Input) float64 {
	score := costAware(in).Score
	score -= in.StepPenalty
	if in.Blocked {
		score -= blockedPenalty
	}
	return clamp(score, -1.0, 1.0)
}

func costAware(in Input) costParts {
	target := in.TargetTotal
	if target < 1 {
		target = 1
	}
	t := float64(target)

	readyFrac := float64(in.Obs.Ready) / t
	pendingFrac := float64(in.Obs.Pending) / t
	undershoot := float64(target - in.Obs.Total)
	if undershoot < 0 {
		undershoot = 0
	}
	health := readyFrac*readyFrac - 0.85*pendingFrac - 0.75*(undershoot/t)

	// Unparseable quantities contribute no excess; malformed traces are
	// the mutator's problem, not the scorer's.
	cpuM, _, _ := actions.ParseCPU(in.Resources.CPU)
	memB, _, _ := actions.ParseMemory(in.Resources.Memory)

	replicas := in.Resources.Replicas
	if replicas < 1 {
		replicas = 1
	}
	cpuShare := float64(actions.MaxCPUMillicores) / float64(replicas)
	memShare := float64(actions.MaxMemoryBytes) / float64(replicas)

	cpuFrac := 0.0
	if excess := float64(cpuM - cpuFloorMillicores); excess > 0 {
		cpuFrac = clamp01(excess / cpuShare)
	}
	memFrac := 0.0
	if excess := float64(memB - memFloorBytes); excess > 0 {
		memFrac = clamp01(excess / memShare)
	}
	cost := (cpuFrac + memFrac) / 2

	if waste := in.Resources.Replicas - target; waste > 0 {
		cost += replicaWasteWeight * clamp01(float64(waste)/t)
	}
	cost = clamp01(cost)

	healthy := in.Obs.Ready >= target && in.Obs.Pending == 0
	var score float64
	if healthy {
		score = healthyBase - healthyCostWeight*cost
	} else {
		weight := idleCostWeight
		if in.Obs.Pending > 0 {
			weight = pendingCostWeight
		}
		score = health - weight*cost
	}

	return costParts{
		Health:     health,
		Cost:       cost,
		Healthy:    healthy,
		CPUPerPodM: cpuM,
		MemPerPodB: memB,
		Score:      score,
	}
}
