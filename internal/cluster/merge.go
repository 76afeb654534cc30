package cluster

import (
	"container/heap"

	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Leaf is one input to clustering: a leaf's name, its on-disk filename
// (carried through so the emitted topology can reference it), and the
// bits of its filter within the clustering interval [start, end).
type Leaf struct {
	Name     string
	Filename string
	Bits     *bitvector.Plain
}

// mergeNode is one node of the raw binary merge tree greedyCluster
// builds, before any culling.
type mergeNode struct {
	name     string
	filename string
	height   int
	bits     *bitvector.Plain
	left     *mergeNode
	right    *mergeNode
	active   bool
}

func (n *mergeNode) isLeaf() bool { return n.left == nil && n.right == nil }

// greedyCluster runs the merge algorithm of spec.md §4.4: repeatedly merge
// the closest still-active pair (by Hamming distance over the bits
// supplied), breaking ties toward a shorter merged height, until one node
// remains.
func greedyCluster(leaves []Leaf) (*mergeNode, error) {
	if len(leaves) == 0 {
		return nil, xerrors.New(xerrors.KindInvalid, "cluster: no leaves supplied")
	}

	nodes := make([]*mergeNode, len(leaves))
	for i, l := range leaves {
		nodes[i] = &mergeNode{name: l.Name, filename: l.Filename, height: 1, bits: l.Bits, active: true}
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}

	var pq candidateQueue
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			d, err := hamming(nodes[i].bits, nodes[j].bits)
			if err != nil {
				return nil, err
			}
			heap.Push(&pq, candidate{d: d, h: 1 + max(nodes[i].height, nodes[j].height), u: i, v: j})
		}
	}

	toMerge := len(nodes) - 1
	for merged := 0; merged < toMerge; {
		top := heap.Pop(&pq).(candidate)
		u, v := nodes[top.u], nodes[top.v]
		if !u.active || !v.active {
			continue // stale candidate: one side already merged away
		}

		orBits := u.bits.Clone()
		if err := bitvector.ApplyInPlace(orBits, v.bits, bitvector.OpOr); err != nil {
			return nil, err
		}
		w := &mergeNode{
			height: 1 + max(u.height, v.height),
			bits:   orBits,
			left:   u,
			right:  v,
			active: true,
		}
		u.active = false
		v.active = false

		wi := len(nodes)
		nodes = append(nodes, w)
		for i, x := range nodes[:wi] {
			if !x.active {
				continue
			}
			d, err := hamming(x.bits, w.bits)
			if err != nil {
				return nil, err
			}
			heap.Push(&pq, candidate{d: d, h: 1 + max(x.height, w.height), u: i, v: wi})
		}
		merged++
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].active {
			return nodes[i], nil
		}
	}
	return nil, xerrors.New(xerrors.KindConsistency, "cluster: merge did not converge to a single root")
}

func hamming(a, b *bitvector.Plain) (uint64, error) {
	return bitvector.PopcountOfOp(a, b, bitvector.OpXor)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
