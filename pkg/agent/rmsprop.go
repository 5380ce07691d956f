package agent

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	rmspropAlpha = 0.99
	rmspropEps   = 1e-8
)

// rmsprop scales each gradient by the root of its running squared average.
// No momentum, no weight decay.
type rmsprop struct {
	lr float64
	sq []*mat.Dense
}

func newRMSprop(lr float64, params []*mat.Dense) *rmsprop {
	o := &rmsprop{lr: lr}
	for _, p := range params {
		rows, cols := p.Dims()
		o.sq = append(o.sq, mat.NewDense(rows, cols, nil))
	}
	return o
}

func (o *rmsprop) step(params, grads []*mat.Dense) {
	for i, p := range params {
		g := grads[i]
		sq := o.sq[i]
		rows, cols := p.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				gv := g.At(r, c)
				s := rmspropAlpha*sq.At(r, c) + (1-rmspropAlpha)*gv*gv
				sq.Set(r, c, s)
				p.Set(r, c, p.At(r, c)-o.lr*gv/(math.Sqrt(s)+rmspropEps))
			}
		}
	}
}

// state flattens the accumulators row-major, for checkpoints.
func (o *rmsprop) state() [][]float64 {
	out := make([][]float64, len(o.sq))
	for i, m := range o.sq {
		out[i] = flatten(m)
	}
	return out
}

// setState restores accumulators captured by state.
func (o *rmsprop) setState(s [][]float64) error {
	if len(s) != len(o.sq) {
		return fmt.Errorf("expected %d accumulator tensors, got %d", len(o.sq), len(s))
	}
	for i, m := range o.sq {
		rows, cols := m.Dims()
		if len(s[i]) != rows*cols {
			return fmt.Errorf("accumulator %d: expected %d values, got %d", i, rows*cols, len(s[i]))
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				m.Set(r, c, s[i][r*cols+c])
			}
		}
	}
	return nil
}
