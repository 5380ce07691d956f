package agent

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQNetworkSeededInitIsDeterministic(t *testing.T) {
	state := []float64{0.2, 0.4, 0.6, 0.8}

	n1 := NewQNetwork(4, 4, rand.New(rand.NewSource(42)))
	n2 := NewQNetwork(4, 4, rand.New(rand.NewSource(42)))
	if !floatsEqual(n1.Forward(state), n2.Forward(state)) {
		t.Error("Same seed should produce identical networks")
	}

	n3 := NewQNetwork(4, 4, rand.New(rand.NewSource(43)))
	if floatsEqual(n1.Forward(state), n3.Forward(state)) {
		t.Error("Different seeds should produce different networks")
	}
}

func TestQNetworkOutputLength(t *testing.T) {
	n := NewQNetwork(5, 7, rand.New(rand.NewSource(1)))
	q := n.Forward([]float64{0.1, 0.2, 0.3, 0.4, 0.5})
	if len(q) != 7 {
		t.Fatalf("Forward returned %d values, want 7", len(q))
	}
}

func TestQNetworkCloneFrom(t *testing.T) {
	src := NewQNetwork(4, 4, rand.New(rand.NewSource(10)))
	dst := NewQNetwork(4, 4, rand.New(rand.NewSource(11)))

	state := []float64{0.5, 0.5, 0.5, 0.5}
	if floatsEqual(src.Forward(state), dst.Forward(state)) {
		t.Fatal("Networks should differ before cloning")
	}

	dst.CloneFrom(src)
	if !floatsEqual(src.Forward(state), dst.Forward(state)) {
		t.Error("CloneFrom should make outputs identical")
	}

	// the copy is by value, not by reference
	src.b3.Set(0, 0, 99)
	if floatsEqual(src.Forward(state), dst.Forward(state)) {
		t.Error("Mutating the source after CloneFrom should not affect the clone")
	}
}

func TestQNetworkWeightsRoundTrip(t *testing.T) {
	src := NewQNetwork(4, 4, rand.New(rand.NewSource(20)))
	dst := NewQNetwork(4, 4, rand.New(rand.NewSource(21)))

	if err := dst.setWeights(src.weights()); err != nil {
		t.Fatalf("setWeights failed: %v", err)
	}
	state := []float64{0.1, 0.9, 0.3, 0.7}
	if !floatsEqual(src.Forward(state), dst.Forward(state)) {
		t.Error("Weights round trip should reproduce outputs")
	}

	bad := src.weights()
	bad[0] = bad[0][:3]
	if err := dst.setWeights(bad); err == nil {
		t.Error("Expected error for truncated weight tensor")
	}
}

// Regression toward a fixed target through backward + rmsprop should shrink
// the error on a single state.
func TestQNetworkGradientStepReducesError(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	n := NewQNetwork(4, 4, rng)
	opt := newRMSprop(0.001, n.params())

	state := []float64{0.5, 0.25, 0.75, 0.1}
	const target = 1.0

	residual := func() float64 {
		diff := n.Forward(state)[0] - target
		return diff * diff
	}

	before := residual()
	x := mat.NewDense(1, 4, append([]float64(nil), state...))
	for i := 0; i < 300; i++ {
		f := n.forward(x)
		dOut := mat.NewDense(1, 4, nil)
		dOut.Set(0, 0, 2*(f.out.At(0, 0)-target))
		opt.step(n.params(), n.backward(f, dOut))
	}
	after := residual()

	if after >= before/2 {
		t.Errorf("Training did not reduce error: before=%v after=%v", before, after)
	}
}
