package agent

import (
	"fmt"
	"math"

	"github.com/remedyops/k8s-sim-trainer/pkg/actions"
	"github.com/remedyops/k8s-sim-trainer/pkg/models"
)

// Normalization bounds keep each state component roughly within [0, 1].
const (
	cpuNormMillicores = 4000
	memNormMiB        = 4096
	pendingNorm       = 5
	distanceNorm      = 5
	replicaNorm       = 8
)

// Component indices into the encoded state vector.
const (
	IdxCPU = iota
	IdxMemory
	IdxPending
	IdxDistance
	IdxReplicas // v2 only
)

// Encoder maps one step's observation and resource state to the fixed-length
// numeric vector consumed by the value network. Version 1 produces 4
// components; version 2 appends a capped replica fraction.
type Encoder struct {
	version int
}

func NewEncoder(version int) (Encoder, error) {
	if version != 1 && version != 2 {
		return Encoder{}, fmt.Errorf("unsupported state encoding version %d (want 1 or 2)", version)
	}
	return Encoder{version: version}, nil
}

func (e Encoder) Version() int { return e.version }

// Dim returns the length of the vectors Encode produces.
func (e Encoder) Dim() int {
	if e.version == 2 {
		return 5
	}
	return 4
}

// Encode builds the state vector. Unparseable quantity strings contribute
// zero rather than failing; the mutator already rejects malformed traces.
func (e Encoder) Encode(obs models.Observation, res models.ResourceState, targetTotal int) []float64 {
	cpuM, _, _ := actions.ParseCPU(res.CPU)
	memB, _, _ := actions.ParseMemory(res.Memory)
	memMiB := float64(memB) / (1024 * 1024)

	state := make([]float64, 0, e.Dim())
	state = append(state,
		float64(cpuM)/cpuNormMillicores,
		memMiB/memNormMiB,
		float64(obs.Pending)/pendingNorm,
		float64(targetTotal-obs.Total)/distanceNorm,
	)
	if e.version == 2 {
		state = append(state, math.Min(1, float64(res.Replicas)/replicaNorm))
	}
	return state
}
