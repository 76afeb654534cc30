// Package query implements the batched traversal that answers a set of
// k-mer presence queries against a built tree in one cooperative pass
// (spec.md §4.5): per-query position lists are partitioned in place as
// positions resolve, and a query is pruned from a subtree as soon as it
// has definitively passed or failed. A node's filter is loaded on entry
// and stays resident while its subtree is traversed, so every filter on
// the current root-to-node path is loaded at the same time.
package query

import (
	"math"

	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/tree"
)

// Query is one batch member: a fixed list of hash positions extracted
// from a sequence, a pass threshold, and the mutable counters the
// traversal updates in place as it descends. A Query must not be reused
// across two concurrent Run calls, but a completed Query's Matches may be
// read freely afterward.
type Query struct {
	Name      string
	Threshold float64
	Counted   bool

	Positions    []uint64
	NumPositions int

	Matches []Match
	Skipped bool

	numPassed, numFailed, numUnresolved int
	neededToPass, neededToFail          int
	stack                               []queryState
}

// Match records one leaf the query was deemed to match, along with the
// pass count in effect at the node that decided the match (spec.md §6:
// "at minimum... (leaf name, numPassed, numPositions)"). For a match
// recorded by a subtree-level pass (rather than direct leaf evaluation),
// the leaf-specific fields are zero.
type Match struct {
	Leaf         *tree.Node
	NumPassed    int
	NumPositions int

	LeafEvaluated bool
	SetSizeKnown  bool
	SetSize       uint64
	NumHashes     uint32
	NumBits       uint64
}

type queryState struct {
	numUnresolved, numPassed, numFailed int
}

// NewQuery builds a Query from an already-extracted, already-deduplicated
// (if desired) position list.
func NewQuery(name string, positions []uint64, threshold float64, counted bool) *Query {
	q := &Query{
		Name:         name,
		Threshold:    threshold,
		Counted:      counted,
		Positions:    positions,
		NumPositions: len(positions),
	}
	q.numUnresolved = q.NumPositions
	q.neededToPass = int(math.Ceil(threshold * float64(q.NumPositions)))
	q.neededToFail = q.NumPositions - q.neededToPass + 1
	return q
}

func (q *Query) push() {
	q.stack = append(q.stack, queryState{q.numUnresolved, q.numPassed, q.numFailed})
}

func (q *Query) pop() {
	n := len(q.stack) - 1
	s := q.stack[n]
	q.stack = q.stack[:n]
	q.numUnresolved, q.numPassed, q.numFailed = s.numUnresolved, s.numPassed, s.numFailed
}

// cloneForParallelChild returns an independent copy suitable for handing
// to one sibling subtree's traversal when siblings are explored
// concurrently: its own copy of the position window and counters, so no
// two goroutines ever touch the same backing array (spec.md §9:
// "each query's stack is touched by exactly one thread at a time").
func (q *Query) cloneForParallelChild() *Query {
	posCopy := make([]uint64, len(q.Positions))
	copy(posCopy, q.Positions)
	return &Query{
		Name:          q.Name,
		Threshold:     q.Threshold,
		Counted:       q.Counted,
		Positions:     posCopy,
		NumPositions:  q.NumPositions,
		numPassed:     q.numPassed,
		numFailed:     q.numFailed,
		numUnresolved: q.numUnresolved,
		neededToPass:  q.neededToPass,
		neededToFail:  q.neededToFail,
	}
}

func (q *Query) recordLeaf(n *tree.Node, numPassed int) {
	q.Matches = append(q.Matches, Match{Leaf: n, NumPassed: numPassed, NumPositions: q.NumPositions})
}

func (q *Query) recordLeafEvaluated(n *tree.Node, numPassed int, f *bloom.Filter) {
	m := Match{
		Leaf: n, NumPassed: numPassed, NumPositions: q.NumPositions,
		LeafEvaluated: true,
		SetSizeKnown:  f.SetSizeKnown,
		SetSize:       f.SetSize,
		NumHashes:     f.NumHashes,
		NumBits:       f.NumBits,
	}
	q.Matches = append(q.Matches, m)
}

// adjustDescend rewrites every position still in the unresolved window
// into the next DeterminedBrief node's compacted coordinate space via
// rank0 (spec.md §4.5).
func (q *Query) adjustDescend(f *bloom.Filter) error {
	for i := 0; i < q.numUnresolved; i++ {
		p, err := f.DetRank0(q.Positions[i])
		if err != nil {
			return err
		}
		q.Positions[i] = p
	}
	return nil
}

// adjustAscend is adjustDescend's inverse, applied on return from
// recursion so the save/restore is symmetric.
func (q *Query) adjustAscend(f *bloom.Filter) error {
	for i := 0; i < q.numUnresolved; i++ {
		p, err := f.DetSelect0(q.Positions[i])
		if err != nil {
			return err
		}
		q.Positions[i] = p
	}
	return nil
}

// processAtNode scans the unresolved window against f's lookup.
//
// At a non-leaf node, a resolved position is swapped to the tail of the
// window and numUnresolved decremented, so a deeper recursion only ever
// sees the remaining unresolved positions packed at the front; the scan
// stops early once neededToFail or (outside counted mode) neededToPass is
// reached.
//
// At a leaf there is no deeper recursion to pack positions for, so every
// position in the entry window is scanned once, in place; numUnresolved
// is still decremented on every resolution so it continues to reflect the
// true remaining-unresolved count (spec.md §4.5: "the position stays in
// place (so counts remain accurate)").
func processAtNode(q *Query, f *bloom.Filter, isLeaf bool) error {
	if isLeaf {
		n := q.numUnresolved
		for i := 0; i < n; i++ {
			lk, err := f.Lookup(q.Positions[i])
			if err != nil {
				return err
			}
			switch lk {
			case bloom.LookupAbsent:
				q.numFailed++
				q.numUnresolved--
			case bloom.LookupPresent:
				q.numPassed++
				q.numUnresolved--
			}
		}
		return nil
	}

	i := 0
	for i < q.numUnresolved {
		p := q.Positions[i]
		lk, err := f.Lookup(p)
		if err != nil {
			return err
		}

		resolved := false
		switch lk {
		case bloom.LookupAbsent:
			q.numFailed++
			resolved = true
		case bloom.LookupPresent:
			q.numPassed++
			resolved = true
		}

		if resolved {
			q.numUnresolved--
			q.Positions[i], q.Positions[q.numUnresolved] = q.Positions[q.numUnresolved], q.Positions[i]
		} else {
			i++
		}

		if q.numFailed >= q.neededToFail {
			return nil
		}
		if !q.Counted && q.numPassed >= q.neededToPass {
			return nil
		}
	}
	return nil
}

// decideAtLeaf applies the leaf-only rule: any position still unresolved
// when a leaf's filter is a complete membership test (up to false
// positives), so it is folded into the pass count before the threshold
// check (spec.md §4.5).
func decideAtLeaf(q *Query) (passed bool, effectivePassed int) {
	effectivePassed = q.numPassed + q.numUnresolved
	return effectivePassed >= q.neededToPass, effectivePassed
}

// decideAtInternal reports whether q has been decided at a non-leaf node,
// and if so whether it passed.
func decideAtInternal(q *Query) (decided, passed bool) {
	if q.numFailed >= q.neededToFail {
		return true, false
	}
	if !q.Counted && q.numPassed >= q.neededToPass {
		return true, true
	}
	return false, false
}
