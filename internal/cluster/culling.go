package cluster

import (
	"math"

	"github.com/howdesbt/howdesbt/internal/bitvector"
)

// nodeStats holds the culling-phase aggregates for one internal merge node:
// its capture/cup vectors (needed by its own parent's aggregation) and the
// determined-bit ratio used to score it (spec.md §4.4).
type nodeStats struct {
	cap, cup  *bitvector.Plain
	ratio     float64
	fruitless bool
}

// computeStats walks n post-order, computing B_cap/B_cup for every
// internal node and, from them, B_det and its ratio popcount(B_det)/numBits.
// Leaves contribute their own bits as both cap and cup (they are never
// culling candidates). Every internal node's ratio is appended to *ratios
// in post-order.
func computeStats(n *mergeNode, numBits uint64, stats map[*mergeNode]*nodeStats, ratios *[]float64) (*bitvector.Plain, *bitvector.Plain, error) {
	if n.isLeaf() {
		return n.bits, n.bits, nil
	}

	lcap, lcup, err := computeStats(n.left, numBits, stats, ratios)
	if err != nil {
		return nil, nil, err
	}
	rcap, rcup, err := computeStats(n.right, numBits, stats, ratios)
	if err != nil {
		return nil, nil, err
	}

	cap := lcap.Clone()
	if err := bitvector.ApplyInPlace(cap, rcap, bitvector.OpAnd); err != nil {
		return nil, nil, err
	}
	cup := lcup.Clone()
	if err := bitvector.ApplyInPlace(cup, rcup, bitvector.OpOr); err != nil {
		return nil, nil, err
	}

	det := cap.Clone()
	if err := bitvector.ApplyInPlace(det, cup, bitvector.OpOrNot); err != nil {
		return nil, nil, err
	}
	ratio := float64(det.Popcount()) / float64(numBits)

	stats[n] = &nodeStats{cap: cap, cup: cup, ratio: ratio}
	*ratios = append(*ratios, ratio)

	return cap, cup, nil
}

// deriveThreshold computes mean(ratios) - z*stdev(ratios), clamped to
// [0, 1]. stdev is the population standard deviation; with fewer than two
// samples the spread is taken to be zero, so the threshold is the mean
// itself.
func deriveThreshold(ratios []float64, z float64) float64 {
	if len(ratios) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratios {
		sum += r
	}
	mean := sum / float64(len(ratios))

	var sqdiff float64
	for _, r := range ratios {
		d := r - mean
		sqdiff += d * d
	}
	stdev := math.Sqrt(sqdiff / float64(len(ratios)))

	t := mean - z*stdev
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// cull marks every internal node other than root as fruitless when its
// ratio falls below threshold (user-supplied, or derived from the
// distribution of internal-node ratios via cfg's cull-Z when nil).
func cull(root *mergeNode, numBits uint64, z float64, userThreshold *float64) (map[*mergeNode]*nodeStats, error) {
	stats := make(map[*mergeNode]*nodeStats)
	var ratios []float64
	if _, _, err := computeStats(root, numBits, stats, &ratios); err != nil {
		return nil, err
	}

	threshold := userThreshold
	var t float64
	if threshold != nil {
		t = *threshold
	} else {
		t = deriveThreshold(ratios, z)
	}

	var mark func(n *mergeNode, isRoot bool)
	mark = func(n *mergeNode, isRoot bool) {
		if n.isLeaf() {
			return
		}
		if !isRoot {
			stats[n].fruitless = stats[n].ratio < t
		}
		mark(n.left, false)
		mark(n.right, false)
	}
	mark(root, true)

	return stats, nil
}
