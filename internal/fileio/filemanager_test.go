package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeNode struct{ name string }

func (n fakeNode) Name() string { return n.name }

func TestFileManager_RegisterAndLookup(t *testing.T) {
	fm := NewFileManager()
	fm.Register("shared.bf", fakeNode{"leafA"})
	fm.Register("shared.bf", fakeNode{"leafB"})

	require.ElementsMatch(t, []string{"leafA", "leafB"}, fm.NodesInFile("shared.bf"))

	n, ok := fm.NodeByName("leafA")
	require.True(t, ok)
	require.Equal(t, "leafA", n.Name())

	_, ok = fm.NodeByName("missing")
	require.False(t, ok)
}

func TestFileManager_OneOpenFileCache(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bf")
	pathB := filepath.Join(dir, "b.bf")
	require.NoError(t, os.WriteFile(pathA, []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("bbb"), 0o644))

	fm := NewFileManager()
	fA, err := fm.Open(pathA)
	require.NoError(t, err)

	fA2, err := fm.Open(pathA)
	require.NoError(t, err)
	require.Same(t, fA, fA2, "reopening the same filename must reuse the cached handle")

	fB, err := fm.Open(pathB)
	require.NoError(t, err)
	require.NotSame(t, fA, fB)

	// fA should now be closed; reading from it must fail.
	_, err = fA.Read(make([]byte, 1))
	require.Error(t, err)

	require.NoError(t, fm.Close())
}
