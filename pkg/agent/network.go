package agent

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Hidden layer widths of the value network.
const (
	hidden1Dim = 24
	hidden2Dim = 48
)

// QNetwork is a feed-forward value approximator: state in, one value
// estimate per action out. Two ReLU hidden layers, no normalization.
type QNetwork struct {
	stateDim int
	nActions int

	w1, b1 *mat.Dense
	w2, b2 *mat.Dense
	w3, b3 *mat.Dense
}

func NewQNetwork(stateDim, nActions int, rng *rand.Rand) *QNetwork {
	n := &QNetwork{stateDim: stateDim, nActions: nActions}
	n.w1, n.b1 = initLayer(stateDim, hidden1Dim, rng)
	n.w2, n.b2 = initLayer(hidden1Dim, hidden2Dim, rng)
	n.w3, n.b3 = initLayer(hidden2Dim, nActions, rng)
	return n
}

// initLayer draws weights and biases uniformly from ±1/sqrt(fanIn).
func initLayer(in, out int, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	bound := 1.0 / math.Sqrt(float64(in))
	w := mat.NewDense(in, out, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*bound)
		}
	}
	b := mat.NewDense(1, out, nil)
	for j := 0; j < out; j++ {
		b.Set(0, j, (rng.Float64()*2-1)*bound)
	}
	return w, b
}

// Forward computes the q-values for a single encoded state.
func (n *QNetwork) Forward(state []float64) []float64 {
	x := mat.NewDense(1, len(state), append([]float64(nil), state...))
	return mat.Row(nil, 0, n.forward(x).out)
}

// Argmax returns the index of the highest-valued action for state. Ties go
// to the lowest index.
func (n *QNetwork) Argmax(state []float64) int {
	q := n.Forward(state)
	best := 0
	for i, v := range q {
		if v > q[best] {
			best = i
		}
	}
	return best
}

// CloneFrom overwrites every parameter with a verbatim copy of src's.
func (n *QNetwork) CloneFrom(src *QNetwork) {
	n.w1.Copy(src.w1)
	n.b1.Copy(src.b1)
	n.w2.Copy(src.w2)
	n.b2.Copy(src.b2)
	n.w3.Copy(src.w3)
	n.b3.Copy(src.b3)
}

// params returns the trainable parameters in a fixed order shared with the
// optimizer and checkpoint layout.
func (n *QNetwork) params() []*mat.Dense {
	return []*mat.Dense{n.w1, n.b1, n.w2, n.b2, n.w3, n.b3}
}

// weights flattens each parameter row-major, for checkpoints.
func (n *QNetwork) weights() [][]float64 {
	params := n.params()
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = flatten(p)
	}
	return out
}

// setWeights restores parameters captured by weights.
func (n *QNetwork) setWeights(w [][]float64) error {
	params := n.params()
	if len(w) != len(params) {
		return fmt.Errorf("expected %d parameter tensors, got %d", len(params), len(w))
	}
	for i, p := range params {
		rows, cols := p.Dims()
		if len(w[i]) != rows*cols {
			return fmt.Errorf("parameter %d: expected %d values, got %d", i, rows*cols, len(w[i]))
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				p.Set(r, c, w[i][r*cols+c])
			}
		}
	}
	return nil
}

// forwardPass keeps the intermediate activations needed for backprop.
type forwardPass struct {
	x, z1, a1, z2, a2, out *mat.Dense
}

func (n *QNetwork) forward(x *mat.Dense) *forwardPass {
	rows, _ := x.Dims()

	z1 := mat.NewDense(rows, hidden1Dim, nil)
	z1.Mul(x, n.w1)
	addBias(z1, n.b1)
	a1 := relu(z1)

	z2 := mat.NewDense(rows, hidden2Dim, nil)
	z2.Mul(a1, n.w2)
	addBias(z2, n.b2)
	a2 := relu(z2)

	out := mat.NewDense(rows, n.nActions, nil)
	out.Mul(a2, n.w3)
	addBias(out, n.b3)

	return &forwardPass{x: x, z1: z1, a1: a1, z2: z2, a2: a2, out: out}
}

// backward computes parameter gradients for the loss whose output-layer
// gradient is dOut, in the same order as params.
func (n *QNetwork) backward(f *forwardPass, dOut *mat.Dense) []*mat.Dense {
	rows, _ := dOut.Dims()

	dW3 := mat.NewDense(hidden2Dim, n.nActions, nil)
	dW3.Mul(f.a2.T(), dOut)
	dB3 := colSums(dOut)

	dA2 := mat.NewDense(rows, hidden2Dim, nil)
	dA2.Mul(dOut, n.w3.T())
	dZ2 := reluMask(dA2, f.z2)

	dW2 := mat.NewDense(hidden1Dim, hidden2Dim, nil)
	dW2.Mul(f.a1.T(), dZ2)
	dB2 := colSums(dZ2)

	dA1 := mat.NewDense(rows, hidden1Dim, nil)
	dA1.Mul(dZ2, n.w2.T())
	dZ1 := reluMask(dA1, f.z1)

	dW1 := mat.NewDense(n.stateDim, hidden1Dim, nil)
	dW1.Mul(f.x.T(), dZ1)
	dB1 := colSums(dZ1)

	return []*mat.Dense{dW1, dB1, dW2, dB2, dW3, dB3}
}

func addBias(m, bias *mat.Dense) {
	rows, cols := m.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, m.At(r, c)+bias.At(0, c))
		}
	}
}

func relu(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, math.Max(0, m.At(r, c)))
		}
	}
	return out
}

// reluMask zeroes the upstream gradient wherever the pre-activation was
// not positive.
func reluMask(grad, z *mat.Dense) *mat.Dense {
	rows, cols := grad.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if z.At(r, c) > 0 {
				out.Set(r, c, grad.At(r, c))
			}
		}
	}
	return out
}

func colSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(1, cols, nil)
	for c := 0; c < cols; c++ {
		sum := 0.0
		for r := 0; r < rows; r++ {
			sum += m.At(r, c)
		}
		out.Set(0, c, sum)
	}
	return out
}

func flatten(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, m.At(r, c))
		}
	}
	return out
}
