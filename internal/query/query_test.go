package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/hashfn"
	"github.com/howdesbt/howdesbt/internal/tree"
)

func writeLeaf(t *testing.T, fm *fileio.FileManager, cfg *config.Config, path string, numBits uint64, positions ...uint64) {
	t.Helper()
	v := bitvector.New(numBits)
	for _, p := range positions {
		require.NoError(t, v.SetBit(p, true))
	}
	f := &bloom.Filter{Kind: bloom.KindSimple, NumBits: numBits, HashModulus: numBits}
	f.Vectors = []bitvector.Vector{v}
	require.NoError(t, tree.SaveFilter(fm, path, f, cfg))
}

func buildTwoLeafTree(t *testing.T, kind bloom.Kind) (*tree.Node, *fileio.FileManager, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	fm := fileio.NewFileManager()
	cfg := config.New()

	l1 := filepath.Join(dir, "L1.bf")
	l2 := filepath.Join(dir, "L2.bf")
	writeLeaf(t, fm, cfg, l1, 16, 1, 2)
	writeLeaf(t, fm, cfg, l2, 16, 2, 3)

	root := &tree.Node{Name: "root", Filename: filepath.Join(dir, "root.bf")}
	c1 := &tree.Node{Name: "L1", Filename: l1, Parent: root}
	c2 := &tree.Node{Name: "L2", Filename: l2, Parent: root}
	root.Children = []*tree.Node{c1, c2}

	b := &tree.Builder{Kind: kind, Cfg: cfg, FM: fm}
	require.NoError(t, b.Build(root))

	// Builder unloads everything after saving; reload the root fresh to
	// simulate a just-opened topology.
	root.Filter = nil
	return root, fm, cfg
}

func matchedLeaves(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Leaf.Name
	}
	return out
}

func TestExtractPositions_SkipsNonACGTRuns(t *testing.T) {
	h := hashfn.XXHash{}
	seq := []byte("ACGTNACGT")
	pos := ExtractPositions(h, seq, 4, 1, 1000, 1000, false)
	// Two valid 4-mers survive the 'N' break: "ACGT" (before N) and "ACGT" (after).
	require.Len(t, pos, 2)
}

func TestExtractPositions_TooShortSequenceYieldsNothing(t *testing.T) {
	h := hashfn.XXHash{}
	require.Empty(t, ExtractPositions(h, []byte("AC"), 4, 1, 1000, 1000, false))
}

func TestExtractPositions_DedupCollapsesRepeats(t *testing.T) {
	h := hashfn.XXHash{}
	seq := []byte("AAAAAAAA") // every 4-mer is "AAAA", same hash every time
	all := ExtractPositions(h, seq, 4, 1, 1000, 1000, false)
	deduped := ExtractPositions(h, seq, 4, 1, 1000, 1000, true)
	require.Greater(t, len(all), 1)
	require.Len(t, deduped, 1)
}

func TestExtractPositions_DropsPositionsAtOrAboveNumBits(t *testing.T) {
	h := hashfn.XXHash{}
	seq := []byte("ACGTACGTACGT")
	pos := ExtractPositions(h, seq, 4, 1, 1000, 0, false)
	require.Empty(t, pos, "numBits=0 should drop every position")
}

func TestRunner_SimpleTree_LeafContainingAllPositionsMatches(t *testing.T) {
	root, fm, cfg := buildTwoLeafTree(t, bloom.KindSimple)
	q := NewQuery("q1", []uint64{1, 2}, 1.0, false)

	r := &Runner{FM: fm, Cfg: cfg}
	require.NoError(t, r.Run(root, []*Query{q}))

	require.ElementsMatch(t, []string{"L1"}, matchedLeaves(q.Matches))
}

func TestRunner_SimpleTree_PartialThresholdMatchesBoth(t *testing.T) {
	root, fm, cfg := buildTwoLeafTree(t, bloom.KindSimple)
	// position 2 is shared by both leaves; at threshold 0.5 (1 of 2
	// positions) both leaves qualify.
	q := NewQuery("q1", []uint64{1, 2}, 0.5, false)

	r := &Runner{FM: fm, Cfg: cfg}
	require.NoError(t, r.Run(root, []*Query{q}))

	require.ElementsMatch(t, []string{"L1", "L2"}, matchedLeaves(q.Matches))
}

func TestRunner_QueryWithZeroPositionsIsSkipped(t *testing.T) {
	root, fm, cfg := buildTwoLeafTree(t, bloom.KindSimple)
	q := NewQuery("empty", nil, 1.0, false)

	r := &Runner{FM: fm, Cfg: cfg}
	require.NoError(t, r.Run(root, []*Query{q}))

	require.True(t, q.Skipped)
	require.Empty(t, q.Matches)
}

func TestRunner_DeterminedBriefTree_Matches(t *testing.T) {
	root, fm, cfg := buildTwoLeafTree(t, bloom.KindDeterminedBrief)
	q := NewQuery("q1", []uint64{1, 2}, 1.0, false)

	r := &Runner{FM: fm, Cfg: cfg}
	require.NoError(t, r.Run(root, []*Query{q}))

	require.ElementsMatch(t, []string{"L1"}, matchedLeaves(q.Matches))
}

func TestRunner_ParallelSiblingThreshold_MatchesSequentialResult(t *testing.T) {
	root, fm, cfg := buildTwoLeafTree(t, bloom.KindSimple)
	cfg.ParallelSiblingThreshold = 1 // force the parallel path with only 2 children

	q := NewQuery("q1", []uint64{1, 2}, 0.5, false)
	r := &Runner{FM: fm, Cfg: cfg}
	require.NoError(t, r.Run(root, []*Query{q}))

	require.ElementsMatch(t, []string{"L1", "L2"}, matchedLeaves(q.Matches))
}

func TestAdjustedCount_ClampsAtZero(t *testing.T) {
	require.Equal(t, 0, AdjustedCount(0, 10, 2, 100, 1000))
}

func TestAdjustedCount_ZeroNumPositionsIsZero(t *testing.T) {
	require.Equal(t, 0, AdjustedCount(5, 0, 2, 100, 1000))
}

func TestAdjustedCount_FullObservedNearNumPositions(t *testing.T) {
	got := AdjustedCount(10, 10, 2, 100, 1000)
	require.InDelta(t, 10, got, 1)
}
