package stabilizer

import (
	"math"
	"sort"
)

// tieEpsilon treats two vote totals as equal when they differ by less than this.
const tieEpsilon = 1e-9

// vote is one buffer slot. An empty value is a null vote that only ages the window.
type vote struct {
	value  string
	weight float64
}

// voteBuffer is a fixed-size circular buffer with one slot per frame.
type voteBuffer struct {
	slots []vote
	next  int
}

func newVoteBuffer(size int) *voteBuffer {
	if size < 1 {
		size = 1
	}
	return &voteBuffer{slots: make([]vote, size)}
}

func (b *voteBuffer) push(v vote) {
	b.slots[b.next] = v
	b.next = (b.next + 1) % len(b.slots)
}

// tally sums weights per value and returns the total weight.
func (b *voteBuffer) tally() (map[string]float64, float64) {
	votes := make(map[string]float64)
	total := 0.0
	for _, v := range b.slots {
		if v.value == "" || v.weight <= 0 {
			continue
		}
		votes[v.value] += v.weight
		total += v.weight
	}
	return votes, total
}

func (b *voteBuffer) reset() {
	clear(b.slots)
	b.next = 0
}

func (b *voteBuffer) size() int {
	return len(b.slots)
}

// dominant picks the heaviest value. Ties go to the values in prefer (in
// order), then to the lexically smallest value, so identical histories
// always produce identical results.
func dominant(votes map[string]float64, prefer ...string) (string, float64) {
	keys := make([]string, 0, len(votes))
	for k := range votes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rank := func(v string) int {
		for i, p := range prefer {
			if p != "" && p == v {
				return i
			}
		}
		return len(prefer)
	}

	best, bestW := "", 0.0
	for _, k := range keys {
		w := votes[k]
		switch {
		case best == "" || w > bestW+tieEpsilon:
			best, bestW = k, w
		case math.Abs(w-bestW) <= tieEpsilon && rank(k) < rank(best):
			best, bestW = k, w
		}
	}
	return best, bestW
}

// finite maps NaN and ±Inf to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
