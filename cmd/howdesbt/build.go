package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/tree"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// runBuild implements the build subcommand: read a topology file, compute
// every internal node's filter via the chosen kind's recurrence, and
// rewrite the topology with the derived on-disk filenames (spec.md §4.3,
// §6). The tree kind is chosen by at most one of
// --simple|--allsome|--determined|--determined-brief|--howde.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	topologyIn := fs.String("topology", "", "input topology file (required)")
	topologyOut := fs.String("out", "", "topology file to write with derived filenames (defaults to overwriting --topology)")
	simple := fs.Bool("simple", false, "build a Simple tree")
	allsome := fs.Bool("allsome", false, "build an AllSome tree")
	determined := fs.Bool("determined", false, "build a Determined tree")
	determinedBrief := fs.Bool("determined-brief", false, "build a DeterminedBrief tree")
	howde := fs.Bool("howde", false, "build a DeterminedBrief tree compressed with RRR (shorthand for --determined-brief --rrr)")
	uncompressed := fs.Bool("uncompressed", false, "save vectors uncompressed")
	rrr := fs.Bool("rrr", false, "save vectors RRR-compressed")
	roar := fs.Bool("roar", false, "save vectors Roaring-compressed")
	consistencyCheck := fs.Bool("consistencycheck", false, "validate that every leaf filter shares smerSize/numHashes/seeds/hashModulus/numBits before building")
	rrrBlockSize := fs.Uint("rrr-block-size", uint(config.DefaultRRRBlockSize), "RRR block size")
	rrrPeriod := fs.Uint("rrr-rank-period", uint(config.DefaultRankSamplePeriod), "RRR rank sample period")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *topologyIn == "" {
		return xerrors.New(xerrors.KindInvalid, "build requires --topology")
	}
	if *topologyOut == "" {
		*topologyOut = *topologyIn
	}

	kind, err := resolveKind(*simple, *allsome, *determined, *determinedBrief, *howde)
	if err != nil {
		return err
	}
	compress := resolveCompression(*uncompressed, *rrr, *roar, *howde)

	cfg := config.New(
		config.WithRRRBlockSize(uint8(*rrrBlockSize)),
		config.WithRankSamplePeriod(uint8(*rrrPeriod)),
	)
	fm := fileio.NewFileManager()

	root, err := parseTopologyFile(*topologyIn, fm)
	if err != nil {
		return err
	}
	if err := tree.Validate(root); err != nil {
		return err
	}
	if *consistencyCheck {
		if err := tree.ValidateFilters(fm, root, cfg); err != nil {
			return err
		}
	}

	b := &tree.Builder{Kind: kind, Cfg: cfg, FM: fm, Compress: compress}
	if err := b.Build(root); err != nil {
		return err
	}

	w, err := os.Create(*topologyOut)
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "creating topology output", err)
	}
	defer w.Close()
	return tree.WriteTopology(w, root)
}

func resolveKind(simple, allsome, determined, determinedBrief, howde bool) (bloom.Kind, error) {
	chosen := 0
	var kind bloom.Kind
	for _, pair := range []struct {
		set  bool
		kind bloom.Kind
	}{
		{simple, bloom.KindSimple},
		{allsome, bloom.KindAllSome},
		{determined, bloom.KindDetermined},
		{determinedBrief || howde, bloom.KindDeterminedBrief},
	} {
		if pair.set {
			chosen++
			kind = pair.kind
		}
	}
	switch chosen {
	case 0:
		return bloom.KindSimple, nil
	case 1:
		return kind, nil
	default:
		return 0, xerrors.New(xerrors.KindInvalid, "build: at most one of --simple/--allsome/--determined/--determined-brief/--howde may be given")
	}
}

func resolveCompression(uncompressed, rrr, roar, howde bool) tree.Compression {
	switch {
	case roar:
		return tree.CompressRoaring
	case rrr, howde:
		return tree.CompressRRR
	case uncompressed:
		return tree.CompressNone
	default:
		return tree.CompressNone
	}
}

func parseTopologyFile(path string, fm *fileio.FileManager) (*tree.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "opening topology file", err)
	}
	defer f.Close()
	root, err := tree.ParseTopology(f, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	registerNodes(fm, root)
	return root, nil
}

func registerNodes(fm *fileio.FileManager, n *tree.Node) {
	if !n.Dummy {
		fm.Register(n.Filename, namedNode{n})
	}
	for _, c := range n.Children {
		registerNodes(fm, c)
	}
}

// namedNode adapts a *tree.Node to fileio.Node without internal/tree
// needing to export a constructor for it.
type namedNode struct{ n *tree.Node }

func (w namedNode) Name() string { return w.n.Name }
