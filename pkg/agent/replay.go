package agent

import "math/rand"

// Transition is one step of experience. Once pushed into the replay buffer
// it is never mutated.
type Transition struct {
	State     []float64
	Action    int
	NextState []float64
	Reward    float64
	Done      bool
}

// ReplayBuffer is a fixed-capacity FIFO store of transitions. When full,
// pushing evicts the oldest entry.
type ReplayBuffer struct {
	buf  []Transition
	head int
	size int
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayBuffer{buf: make([]Transition, capacity)}
}

func (b *ReplayBuffer) Len() int { return b.size }

func (b *ReplayBuffer) Cap() int { return len(b.buf) }

func (b *ReplayBuffer) Push(t Transition) {
	if b.size < len(b.buf) {
		b.buf[(b.head+b.size)%len(b.buf)] = t
		b.size++
		return
	}
	b.buf[b.head] = t
	b.head = (b.head + 1) % len(b.buf)
}

// at returns the i-th oldest transition, 0 <= i < size.
func (b *ReplayBuffer) at(i int) Transition {
	return b.buf[(b.head+i)%len(b.buf)]
}

// Sample draws n transitions uniformly without replacement. When fewer than
// n are stored it returns everything.
func (b *ReplayBuffer) Sample(rng *rand.Rand, n int) []Transition {
	if n > b.size {
		n = b.size
	}
	out := make([]Transition, n)
	for i, idx := range rng.Perm(b.size)[:n] {
		out[i] = b.at(idx)
	}
	return out
}
