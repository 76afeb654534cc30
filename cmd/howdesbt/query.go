package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/hashfn"
	qengine "github.com/howdesbt/howdesbt/internal/query"
	"github.com/howdesbt/howdesbt/internal/tree"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// runQuery implements the query subcommand: load a topology, extract s-mer
// hash positions from every sequence in every named file, and run one
// batched traversal per file against the tree (spec.md §4.5, §6).
//
// Each positional argument is a query file path, optionally suffixed with
// "=threshold" to override --threshold for just that file (spec.md §6:
// "query FASTA files with optional per-file thresholds").
func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	topologyPath := fs.String("topology", "", "topology file (required)")
	threshold := fs.Float64("threshold", 0.9, "default fraction of positions a leaf must pass to match")
	counted := fs.Bool("counted", false, "disable early pass pruning so every position is resolved (needed for adjusted counts)")
	dedup := fs.Bool("dedup", false, "deduplicate repeated hash positions within a query before traversal")
	smerSizeOverride := fs.Uint("smer", 0, "override the s-mer size read from the tree's filters (0 = use the tree's)")
	parallelSiblings := fs.Int("parallel-siblings", 0, "minimum child count before sibling subtrees are explored concurrently (0 disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topologyPath == "" {
		return xerrors.New(xerrors.KindInvalid, "query requires --topology")
	}
	if fs.NArg() == 0 {
		return xerrors.New(xerrors.KindInvalid, "query requires at least one query file")
	}

	cfg := config.New(
		config.WithCountedMode(*counted),
		config.WithDedupPositions(*dedup),
		config.WithParallelSiblingThreshold(*parallelSiblings),
	)
	fm := fileio.NewFileManager()

	root, err := parseTopologyFile(*topologyPath, fm)
	if err != nil {
		return err
	}
	if err := tree.Validate(root); err != nil {
		return err
	}

	leaves := root.Leaves()
	if len(leaves) == 0 {
		return xerrors.New(xerrors.KindStructure, "topology has no leaves to query")
	}
	params, err := tree.LoadFilter(fm, leaves[0].Filename, leaves[0].FilterIndex, cfg)
	if err != nil {
		return err
	}
	smerSize := int(params.SmerSize)
	if *smerSizeOverride != 0 {
		smerSize = int(*smerSizeOverride)
	}

	h := hashfn.XXHash{}
	runner := &qengine.Runner{FM: fm, Cfg: cfg}

	for _, arg := range fs.Args() {
		path, fileThreshold := splitFileThreshold(arg, *threshold)
		seqs, err := readSequences(path)
		if err != nil {
			return err
		}

		fmt.Printf("# %s threshold=%.3f\n", path, fileThreshold)
		queries := make([]*qengine.Query, len(seqs))
		for i, s := range seqs {
			positions := qengine.ExtractPositions(h, s.data, smerSize, params.HashSeed1, params.HashModulus, params.NumBits, cfg.DedupPositions)
			q := qengine.NewQuery(s.name, positions, fileThreshold, cfg.CountedMode)
			queries[i] = q
		}

		if err := runner.Run(root, queries); err != nil {
			return err
		}

		for _, q := range queries {
			if q.Skipped {
				log.Printf("query %q dropped: numPositions=0", q.Name)
				continue
			}
			fmt.Printf("%s %d\n", q.Name, q.NumPositions)
			for _, m := range q.Matches {
				fmt.Printf("  %s %d/%d\n", m.Leaf.Name, m.NumPassed, m.NumPositions)
			}
		}
	}
	return nil
}

// splitFileThreshold parses "path" or "path=threshold".
func splitFileThreshold(arg string, fallback float64) (string, float64) {
	if idx := strings.LastIndexByte(arg, '='); idx > 0 {
		if t, err := strconv.ParseFloat(arg[idx+1:], 64); err == nil {
			return arg[:idx], t
		}
	}
	return arg, fallback
}
