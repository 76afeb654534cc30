// TestFullPipeline_ClusterBuildQuery exercises the full cluster -> build ->
// query pipeline across package boundaries, the way integration_write_test.go
// exercises a full write workflow in the teacher repo.
package howdesbt_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/cluster"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/query"
	"github.com/howdesbt/howdesbt/internal/tree"
)

const pipelineNumBits = 64

func writeSimpleLeaf(t *testing.T, fm *fileio.FileManager, cfg *config.Config, dir, name string, positions ...uint64) string {
	t.Helper()
	v := bitvector.New(pipelineNumBits)
	for _, p := range positions {
		require.NoError(t, v.SetBit(p, true))
	}
	f := &bloom.Filter{
		Kind: bloom.KindSimple, NumBits: pipelineNumBits,
		SmerSize: 4, NumHashes: 1, HashSeed1: 1, HashSeed2: 2, HashModulus: pipelineNumBits,
	}
	f.Vectors = []bitvector.Vector{v}
	path := filepath.Join(dir, name+".bf")
	require.NoError(t, tree.SaveFilter(fm, path, f, cfg))
	return path
}

func TestFullPipeline_ClusterBuildQuery(t *testing.T) {
	dir := t.TempDir()
	fm := fileio.NewFileManager()
	cfg := config.New()

	// Four leaves, each a 64-bit filter populated at a small set of
	// positions a real ACGT-kmer hash might land on: two near-identical
	// pairs so the greedy clusterer has an obvious best-first merge order.
	paths := map[string]string{
		"A": writeSimpleLeaf(t, fm, cfg, dir, "A", 1, 2, 3, 4),
		"B": writeSimpleLeaf(t, fm, cfg, dir, "B", 1, 2, 3, 5),
		"C": writeSimpleLeaf(t, fm, cfg, dir, "C", 40, 41, 42, 43),
		"D": writeSimpleLeaf(t, fm, cfg, dir, "D", 40, 41, 42, 44),
	}

	var leaves []cluster.Leaf
	for _, name := range []string{"A", "B", "C", "D"} {
		f, err := tree.LoadFilter(fm, paths[name], 0, cfg)
		require.NoError(t, err)
		require.NoError(t, f.Decompress())
		bits, ok := f.Vectors[0].(*bitvector.Plain)
		require.True(t, ok)
		leaves = append(leaves, cluster.Leaf{Name: name, Filename: paths[name], Bits: bits})
	}

	clustered, err := cluster.Build(leaves, cfg, cluster.Options{})
	require.NoError(t, err)
	require.NoError(t, tree.Validate(clustered))

	// A and B should land as siblings (they differ at two bits), as should
	// C and D, before the two pairs merge at the root.
	require.Len(t, clustered.Children, 2)
	for _, child := range clustered.Children {
		names := leafNames(child)
		require.Len(t, names, 2)
		require.True(t, sameSet(names, []string{"A", "B"}) || sameSet(names, []string{"C", "D"}))
	}

	// Round-trip through a topology file, the way the cluster and build
	// subcommands hand work to one another: this is what resolves the
	// internal (non-leaf) nodes' bare names into real paths under dir.
	topoPath := filepath.Join(dir, "topology.txt")
	topoOut, err := os.Create(topoPath)
	require.NoError(t, err)
	require.NoError(t, tree.WriteTopology(topoOut, clustered))
	require.NoError(t, topoOut.Close())

	topoIn, err := os.Open(topoPath)
	require.NoError(t, err)
	root, err := tree.ParseTopology(topoIn, dir)
	require.NoError(t, err)
	require.NoError(t, topoIn.Close())
	require.NoError(t, tree.Validate(root))

	builder := &tree.Builder{Kind: bloom.KindDeterminedBrief, Cfg: cfg, FM: fm, Compress: tree.CompressRRR}
	require.NoError(t, builder.Build(root))
	require.NoError(t, tree.Validate(root))

	runner := &query.Runner{FM: fm, Cfg: cfg}

	// Positions {1,2,3} are common to A and B; a full-threshold query
	// should match exactly those two leaves.
	q := query.NewQuery("shared-with-AB", []uint64{1, 2, 3}, 1.0, false)
	require.NoError(t, runner.Run(root, []*query.Query{q}))
	require.ElementsMatch(t, []string{"A", "B"}, matchedNames(q.Matches))

	// Positions {40,41,42} are common to C and D.
	q2 := query.NewQuery("shared-with-CD", []uint64{40, 41, 42}, 1.0, false)
	require.NoError(t, runner.Run(root, []*query.Query{q2}))
	require.ElementsMatch(t, []string{"C", "D"}, matchedNames(q2.Matches))
}

func leafNames(n *tree.Node) []string {
	var out []string
	for _, l := range n.Leaves() {
		out = append(out, l.Name)
	}
	return out
}

func matchedNames(matches []query.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Leaf.Name
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, x := range a {
		seen[x] = true
	}
	for _, x := range b {
		if !seen[x] {
			return false
		}
	}
	return true
}
