package query

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/tree"
)

// Runner drives one batched traversal over a tree (spec.md §4.5). FM's
// single-file cache (spec.md §5) is not itself safe for concurrent
// access, so every load through it is serialized via fmMu regardless of
// how many sibling subtrees are running in parallel.
type Runner struct {
	FM  *fileio.FileManager
	Cfg *config.Config

	fmMu sync.Mutex
}

func (r *Runner) loadFilter(n *tree.Node) error {
	r.fmMu.Lock()
	defer r.fmMu.Unlock()
	f, err := tree.LoadFilter(r.FM, n.Filename, n.FilterIndex, r.Cfg)
	if err != nil {
		return err
	}
	n.Filter = f
	return nil
}

// Run evaluates every query against root, appending matches to each
// Query's Matches field. Queries with zero positions are marked Skipped
// and never descend into the tree (spec.md §4.5: "dropped with a
// warning" — the warning is this flag, left for the caller to surface).
func (r *Runner) Run(root *tree.Node, queries []*Query) error {
	var active []*Query
	for _, q := range queries {
		if q.NumPositions == 0 {
			q.Skipped = true
			continue
		}
		active = append(active, q)
	}
	if len(active) == 0 || root == nil {
		return nil
	}
	if root.Dummy {
		return r.visitChildren(root, active)
	}
	return r.traverseNode(root, active)
}

func (r *Runner) traverseNode(n *tree.Node, active []*Query) error {
	if len(active) == 0 {
		return nil
	}
	for _, q := range active {
		q.push()
	}
	defer func() {
		for _, q := range active {
			q.pop()
		}
	}()

	if n.Filter == nil {
		if err := r.loadFilter(n); err != nil {
			return err
		}
	}

	isLeaf := n.IsLeaf()
	var stillActive []*Query
	for _, q := range active {
		if err := processAtNode(q, n.Filter, isLeaf); err != nil {
			return err
		}

		if isLeaf {
			if passed, effective := decideAtLeaf(q); passed {
				q.recordLeafEvaluated(n, effective, n.Filter)
			}
			continue
		}

		decided, passed := decideAtInternal(q)
		if !decided {
			stillActive = append(stillActive, q)
			continue
		}
		if passed {
			for _, leaf := range n.Leaves() {
				q.recordLeaf(leaf, q.numPassed)
			}
		}
	}

	isAdjustor := n.Filter.Kind == bloom.KindDeterminedBrief
	if !isLeaf && len(stillActive) > 0 {
		if isAdjustor {
			for _, q := range stillActive {
				if err := q.adjustDescend(n.Filter); err != nil {
					return err
				}
			}
		}
		if err := r.visitChildren(n, stillActive); err != nil {
			return err
		}
		if isAdjustor {
			for _, q := range stillActive {
				if err := q.adjustAscend(n.Filter); err != nil {
					return err
				}
			}
		}
	}

	// Once this node's subtree has been traversed, its filter is dropped,
	// except for a position adjustor that had queries still active below
	// it: that node is not marked unloadable and keeps its resident filter
	// (spec.md §4.5).
	noSurvivingDescendants := isLeaf || len(stillActive) == 0
	if !isAdjustor || noSurvivingDescendants {
		n.Unloadable = true
	}
	n.Unload()

	return nil
}

func (r *Runner) visitChildren(n *tree.Node, active []*Query) error {
	if r.Cfg.ParallelSiblingThreshold > 0 && len(n.Children) >= r.Cfg.ParallelSiblingThreshold {
		return r.visitChildrenParallel(n, active)
	}
	for _, c := range n.Children {
		if err := r.traverseNode(c, active); err != nil {
			return err
		}
	}
	return nil
}

// visitChildrenParallel explores sibling subtrees concurrently. Each
// child gets its own clone of every active query so no two goroutines
// ever mutate the same position array or resident filter; matches are
// merged back into the real queries afterward in child order, so the
// result is identical to the sequential traversal regardless of
// completion order.
func (r *Runner) visitChildrenParallel(n *tree.Node, active []*Query) error {
	perChild := make([][]*Query, len(n.Children))
	for ci := range n.Children {
		clones := make([]*Query, len(active))
		for qi, q := range active {
			clones[qi] = q.cloneForParallelChild()
		}
		perChild[ci] = clones
	}

	var g errgroup.Group
	for ci, c := range n.Children {
		ci, c := ci, c
		g.Go(func() error {
			return r.traverseNode(c, perChild[ci])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for ci := range n.Children {
		for qi, clone := range perChild[ci] {
			active[qi].Matches = append(active[qi].Matches, clone.Matches...)
		}
	}
	return nil
}
