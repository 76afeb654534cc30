package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeQueryFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadSequences_ParsesFastaWithWrappedLines(t *testing.T) {
	path := writeQueryFile(t, "q.fa", ">seq1\nACGT\nACGT\n>seq2\nTTTT\n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	require.Equal(t, "seq1", seqs[0].name)
	require.Equal(t, "ACGTACGT", string(seqs[0].data))
	require.Equal(t, "seq2", seqs[1].name)
	require.Equal(t, "TTTT", string(seqs[1].data))
}

func TestReadSequences_OneSequencePerLineFormat(t *testing.T) {
	path := writeQueryFile(t, "q.txt", "ACGTACGT\nTTTTGGGG\n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	require.Equal(t, "ACGTACGT", string(seqs[0].data))
	require.Equal(t, "TTTTGGGG", string(seqs[1].data))
}

func TestReadSequences_UnnamedHeaderGetsDerivedName(t *testing.T) {
	path := writeQueryFile(t, "myquery.fasta", ">\nACGT\n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	require.Contains(t, seqs[0].name, "myquery")
}

func TestReadSequences_SkipsBlankLines(t *testing.T) {
	path := writeQueryFile(t, "q.fa", ">seq1\nACGT\n\nACGT\n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	require.Len(t, seqs, 1)
	require.Equal(t, "ACGTACGT", string(seqs[0].data))
}
