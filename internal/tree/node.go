// Package tree builds and holds the node topology the engine queries
// against: a rooted tree (or a forest under an implicit dummy root) whose
// nodes each carry, at most transiently, a resident Bloom filter.
package tree

import (
	"path/filepath"

	"github.com/howdesbt/howdesbt/internal/bloom"
)

// Node is one tree node. Children is nil for a leaf. A node with an empty
// Name but Dummy set is the implicit forest root produced when a topology
// file declares more than one depth-0 entry (spec.md §4.6).
type Node struct {
	Name     string
	Filename string
	Children []*Node
	Parent   *Node
	Dummy    bool

	// FilterIndex selects which filter this node owns within Filename when
	// several nodes share one container file (spec.md §1, §3, §6): the
	// container's vectors are grouped into consecutive runs of
	// bloom.VectorsPerKind(kind) vectors, and FilterIndex picks the run.
	// Zero for the (overwhelmingly common) one-filter-per-file case.
	FilterIndex int

	// Filter is the node's resident in-memory filter, or nil if not
	// currently loaded. Ownership is exclusive: exactly one Node ever
	// holds a given *bloom.Filter.
	Filter *bloom.Filter

	// Unloadable marks a node whose on-disk file already holds its
	// finalized filter, so the in-memory copy may be safely discarded
	// (spec.md §4.3: "mark it unloadable").
	Unloadable bool
}

// IsLeaf reports whether n has no children (dummy forest roots are never
// leaves, even with zero real filters).
func (n *Node) IsLeaf() bool { return !n.Dummy && len(n.Children) == 0 }

// Unload drops the resident filter if the node has been marked unloadable.
func (n *Node) Unload() {
	if n.Unloadable {
		n.Filter = nil
	}
}

// Depth returns n's depth in the tree (root, or the dummy forest root, is
// depth 0).
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Walk visits n and every descendant in pre-order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Leaves returns every leaf descendant of n (including n itself if it is a
// leaf), in left-to-right order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
		}
	})
	return out
}

// DerivedFilename computes the on-disk filename a finalized node's filter
// is saved to: the node's base filename with ".<kind>.<compressor>.bf"
// appended (spec.md §4.3).
func DerivedFilename(n *Node, kind bloom.Kind, compressor string) string {
	base := n.Filename
	if base == "" {
		base = n.Name
	}
	dir := filepath.Dir(base)
	stem := filepath.Base(base)
	derived := stem + "." + kindFileTag(kind) + "." + compressor + ".bf"
	if dir == "." {
		return derived
	}
	return filepath.Join(dir, derived)
}

// fmNode adapts a *Node to fileio.Node (which wants a Name() method; Node
// itself already uses Name as a field).
type fmNode struct{ n *Node }

func (f fmNode) Name() string { return f.n.Name }

func kindFileTag(kind bloom.Kind) string {
	switch kind {
	case bloom.KindSimple:
		return "simple"
	case bloom.KindAllSome:
		return "allsome"
	case bloom.KindDetermined:
		return "determined"
	case bloom.KindDeterminedBrief:
		return "determined_brief"
	default:
		return "unknown"
	}
}
