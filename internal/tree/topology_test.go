package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTopology_SingleRootCollapse(t *testing.T) {
	src := "root.bf\n*a.bf\n*b.bf\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.False(t, root.Dummy)
	require.Equal(t, "root.bf", root.Name)
	require.Len(t, root.Children, 2)
	require.Equal(t, "a.bf", root.Children[0].Name)
}

func TestParseTopology_ForestBecomesDummyRoot(t *testing.T) {
	src := "t1.bf\nt2.bf\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.True(t, root.Dummy)
	require.Len(t, root.Children, 2)
}

func TestParseTopology_NamedNode(t *testing.T) {
	src := "leaf[somewhere/leaf.bf]\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Equal(t, "leaf", root.Name)
	require.Equal(t, "somewhere/leaf.bf", root.Filename)
}

func TestParseTopology_BaseDirPrepended(t *testing.T) {
	src := "leaf.bf\n"
	root, err := ParseTopology(strings.NewReader(src), "/data/topo")
	require.NoError(t, err)
	require.Equal(t, "/data/topo/leaf.bf", root.Filename)
}

func TestParseTopology_BlankLinesIgnored(t *testing.T) {
	src := "root.bf\n\n*a.bf\n\n*b.bf\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
}

func TestParseTopology_DepthJumpIsError(t *testing.T) {
	src := "root.bf\n**a.bf\n"
	_, err := ParseTopology(strings.NewReader(src), "")
	require.Error(t, err)
}

func TestParseTopology_DuplicateNameIsError(t *testing.T) {
	src := "root.bf\n*a.bf\n*a.bf\n"
	_, err := ParseTopology(strings.NewReader(src), "")
	require.Error(t, err)
}

func TestParseTopology_EmptyIsError(t *testing.T) {
	_, err := ParseTopology(strings.NewReader(""), "")
	require.Error(t, err)
}

func TestParseTopology_SharedFilenameAssignsIncreasingFilterIndex(t *testing.T) {
	src := "root[shared.bf]\n*a[shared.bf]\n*b[shared.bf]\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Equal(t, 0, root.FilterIndex)
	require.Equal(t, 1, root.Children[0].FilterIndex)
	require.Equal(t, 2, root.Children[1].FilterIndex)
}

func TestParseTopology_DistinctFilenamesAllGetFilterIndexZero(t *testing.T) {
	src := "root.bf\n*a.bf\n*b.bf\n"
	root, err := ParseTopology(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Equal(t, 0, root.FilterIndex)
	require.Equal(t, 0, root.Children[0].FilterIndex)
	require.Equal(t, 0, root.Children[1].FilterIndex)
}
