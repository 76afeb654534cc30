package cluster

import (
	"fmt"

	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/tree"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Options configures the optional culling phase run after the greedy
// merge (spec.md §4.4). A nil Threshold derives one from the distribution
// of internal-node determined-bit ratios using cfg's cull-Z.
type Options struct {
	Cull      bool
	Threshold *float64
}

// Build runs greedy Hamming-distance clustering over leaves and returns
// the resulting topology, ready to hand to a topology writer or straight
// to tree.Builder. When opts.Cull is set, low-value internal nodes are
// pruned first. Internal nodes are always named top-down, level by level,
// left to right.
func Build(leaves []Leaf, cfg *config.Config, opts Options) (*tree.Node, error) {
	if len(leaves) == 0 {
		return nil, xerrors.New(xerrors.KindInvalid, "cluster: no leaves supplied")
	}
	numBits := leaves[0].Bits.Len()
	for _, l := range leaves[1:] {
		if l.Bits.Len() != numBits {
			return nil, xerrors.New(xerrors.KindConsistency, "cluster: leaves disagree on bit-vector length")
		}
	}

	root, err := greedyCluster(leaves)
	if err != nil {
		return nil, err
	}

	var stats map[*mergeNode]*nodeStats
	if opts.Cull && !root.isLeaf() {
		stats, err = cull(root, numBits, cfg.CullZ, opts.Threshold)
		if err != nil {
			return nil, err
		}
	}

	out := emitRoot(root, stats)
	renumber(out)
	return out, nil
}

// emitRoot converts the raw merge tree into a *tree.Node topology,
// splicing out any node marked fruitless in stats (its children are
// re-parented to its surviving ancestor). stats may be nil, meaning no
// culling ran.
func emitRoot(root *mergeNode, stats map[*mergeNode]*nodeStats) *tree.Node {
	emitted := emitChildren(root, stats)
	return emitted[0]
}

func emitChildren(n *mergeNode, stats map[*mergeNode]*nodeStats) []*tree.Node {
	if n.isLeaf() {
		return []*tree.Node{{Name: n.name, Filename: n.filename}}
	}
	if stats != nil && stats[n] != nil && stats[n].fruitless {
		out := emitChildren(n.left, stats)
		return append(out, emitChildren(n.right, stats)...)
	}

	node := &tree.Node{}
	var kids []*tree.Node
	kids = append(kids, emitChildren(n.left, stats)...)
	kids = append(kids, emitChildren(n.right, stats)...)
	for _, k := range kids {
		k.Parent = node
	}
	node.Children = kids
	return []*tree.Node{node}
}

// renumber walks the emitted topology breadth-first (top-down, level by
// level, left to right) and assigns sequential names to every internal
// node that does not already have one, so names are monotone along any
// root-to-leaf path (spec.md §4.4).
func renumber(root *tree.Node) {
	queue := []*tree.Node{root}
	next := 1
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if len(n.Children) > 0 && n.Name == "" {
			n.Name = fmt.Sprintf("node%d", next)
			next++
		}
		queue = append(queue, n.Children...)
	}
}
