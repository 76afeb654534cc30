package main

import (
	"bufio"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/cluster"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/tree"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// runCluster implements the cluster subcommand: read a plain list of leaf
// filter files, greedily cluster them by Hamming distance, optionally cull,
// and write the resulting topology (spec.md §4.4, §6). Leaf discovery
// beyond "read a list file" is out of scope (spec.md §1).
func runCluster(args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	listFile := fs.String("list", "", "file listing one leaf .bf path per line (required)")
	out := fs.String("out", "", "topology file to write (required)")
	cull := fs.Bool("cull", false, "prune low-value internal nodes after clustering")
	thresholdFlag := fs.String("threshold", "", "explicit culling threshold in [0,1]; overrides the derived mean-Z*stdev value")
	cullZ := fs.Float64("cullz", config.DefaultCullZ, "Z-score for the derived culling threshold")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listFile == "" || *out == "" {
		return xerrors.New(xerrors.KindInvalid, "cluster requires --list and --out")
	}

	paths, err := readLines(*listFile)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return xerrors.New(xerrors.KindInvalid, "cluster: --list file names no leaves")
	}

	cfg := config.New(config.WithCullZ(*cullZ))
	fm := fileio.NewFileManager()

	leaves := make([]cluster.Leaf, len(paths))
	for i, p := range paths {
		f, err := tree.LoadFilter(fm, p, 0, cfg)
		if err != nil {
			return err
		}
		if err := f.Decompress(); err != nil {
			return err
		}
		bits, ok := f.Vectors[0].(*bitvector.Plain)
		if !ok {
			return xerrors.New(xerrors.KindConsistency, "cluster: leaf filter did not decompress to plain form: "+p)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		leaves[i] = cluster.Leaf{Name: name, Filename: p, Bits: bits}
	}

	opts := cluster.Options{Cull: *cull}
	if *thresholdFlag != "" {
		t, err := strconv.ParseFloat(*thresholdFlag, 64)
		if err != nil {
			return xerrors.Wrap(xerrors.KindInvalid, "parsing --threshold", err)
		}
		opts.Threshold = &t
	}

	root, err := cluster.Build(leaves, cfg, opts)
	if err != nil {
		return err
	}
	if err := tree.Validate(root); err != nil {
		return err
	}

	w, err := os.Create(*out)
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "creating topology output", err)
	}
	defer w.Close()
	return tree.WriteTopology(w, root)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "opening list file", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading list file", err)
	}
	return out, nil
}
