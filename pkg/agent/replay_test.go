package agent

import (
	"math/rand"
	"testing"
)

func transitionWith(reward float64) Transition {
	return Transition{State: []float64{0}, NextState: []float64{0}, Reward: reward}
}

func sampledRewards(b *ReplayBuffer, rng *rand.Rand) map[float64]bool {
	out := map[float64]bool{}
	for _, tr := range b.Sample(rng, b.Len()) {
		out[tr.Reward] = true
	}
	return out
}

func TestReplayBufferEvictsOldestAtCapacity(t *testing.T) {
	b := NewReplayBuffer(5)
	for i := 0; i < 8; i++ {
		b.Push(transitionWith(float64(i)))
	}
	if b.Len() != 5 {
		t.Fatalf("Len = %d, want capacity 5", b.Len())
	}

	got := sampledRewards(b, rand.New(rand.NewSource(1)))
	for i := 3; i < 8; i++ {
		if !got[float64(i)] {
			t.Errorf("Expected transition with reward %d to survive", i)
		}
	}
	for i := 0; i < 3; i++ {
		if got[float64(i)] {
			t.Errorf("Transition with reward %d should have been evicted", i)
		}
	}
}

func TestReplayBufferSamplesWithoutReplacement(t *testing.T) {
	b := NewReplayBuffer(10)
	for i := 0; i < 10; i++ {
		b.Push(transitionWith(float64(i)))
	}

	rng := rand.New(rand.NewSource(2))
	batch := b.Sample(rng, 6)
	if len(batch) != 6 {
		t.Fatalf("Sample returned %d transitions, want 6", len(batch))
	}
	seen := map[float64]bool{}
	for _, tr := range batch {
		if seen[tr.Reward] {
			t.Fatalf("Transition with reward %v sampled twice", tr.Reward)
		}
		seen[tr.Reward] = true
	}
}

func TestReplayBufferSampleClampsToLength(t *testing.T) {
	b := NewReplayBuffer(10)
	b.Push(transitionWith(1))
	b.Push(transitionWith(2))

	batch := b.Sample(rand.New(rand.NewSource(3)), 5)
	if len(batch) != 2 {
		t.Fatalf("Sample returned %d transitions, want all 2", len(batch))
	}
}
