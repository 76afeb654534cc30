package tree

import (
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Validate checks root against the structural invariants spec.md §7
// assigns to StructureError: no internal node with exactly one child, no
// empty tree, no duplicate node names.
func Validate(root *Node) error {
	if root == nil {
		return xerrors.New(xerrors.KindStructure, "empty tree")
	}

	seen := make(map[string]bool)
	var walkErr error
	root.Walk(func(n *Node) {
		if walkErr != nil {
			return
		}
		if !n.Dummy {
			if seen[n.Name] {
				walkErr = xerrors.New(xerrors.KindStructure, "duplicate node name: "+n.Name)
				return
			}
			seen[n.Name] = true
		}
		if !n.Dummy && len(n.Children) == 1 {
			walkErr = xerrors.New(xerrors.KindStructure, "internal node with exactly one child: "+n.Name)
		}
	})
	return walkErr
}

// ValidateFilters loads every leaf filter under root and confirms they all
// agree on {smerSize, numHashes, HashSeed1, HashSeed2, hashModulus,
// numBits}, the bulk consistency pass the original tool exposes via
// --consistencycheck. Every loaded leaf is unloaded again before returning
// so this can run ahead of a build or query without pinning leaf filters
// in memory.
func ValidateFilters(fm *fileio.FileManager, root *Node, cfg *config.Config) error {
	leaves := root.Leaves()
	if len(leaves) == 0 {
		return nil
	}

	first, err := LoadFilter(fm, leaves[0].Filename, leaves[0].FilterIndex, cfg)
	if err != nil {
		return err
	}
	want := first.CloneProperties()

	for _, leaf := range leaves[1:] {
		f, err := LoadFilter(fm, leaf.Filename, leaf.FilterIndex, cfg)
		if err != nil {
			return err
		}
		got := f.CloneProperties()
		if got != want {
			return xerrors.New(xerrors.KindConsistency,
				"leaf filter "+leaf.Name+" disagrees with "+leaves[0].Name+" on smerSize/numHashes/seeds/hashModulus/numBits")
		}
	}
	return nil
}
