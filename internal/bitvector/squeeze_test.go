package bitvector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildPlain(t *testing.T, n uint64, ones ...uint64) *Plain {
	t.Helper()
	p := New(n)
	for _, pos := range ones {
		require.NoError(t, p.SetBit(pos, true))
	}
	return p
}

func TestSqueeze_Basic(t *testing.T) {
	x := buildPlain(t, 10, 1, 4, 7, 9)
	sel := buildPlain(t, 10, 0, 1, 4, 5, 7, 9)

	squeezed, err := Squeeze(x, sel)
	require.NoError(t, err)
	require.Equal(t, uint64(6), squeezed.Len())

	// sel positions in order: 0,1,4,5,7,9 -> x values: 0,1,1,0,1,1
	want := []bool{false, true, true, false, true, true}
	for i, w := range want {
		got, err := squeezed.Bit(uint64(i))
		require.NoError(t, err)
		require.Equal(t, w, got, "index %d", i)
	}
}

func TestSqueeze_LengthMismatch(t *testing.T) {
	x := New(8)
	sel := New(10)
	_, err := Squeeze(x, sel)
	require.Error(t, err)
}

func TestUnsqueezeRoundTrip(t *testing.T) {
	x := buildPlain(t, 20, 0, 2, 5, 9, 13, 19)
	sel := buildPlain(t, 20, 0, 1, 2, 5, 8, 9, 13, 15, 19)

	squeezed, err := Squeeze(x, sel)
	require.NoError(t, err)

	back, err := Unsqueeze(squeezed, sel)
	require.NoError(t, err)

	expected, err := Apply3AndCopy(x, sel)
	require.NoError(t, err)
	for pos := uint64(0); pos < 20; pos++ {
		want, _ := expected.Bit(pos)
		got, _ := back.Bit(pos)
		require.Equal(t, want, got, "pos %d", pos)
	}
}

func TestSqueezeUnsqueezeRoundTrip(t *testing.T) {
	sel := buildPlain(t, 16, 1, 2, 4, 8, 9, 15)
	y := buildPlain(t, sel.Popcount(), 0, 2, 5)

	full, err := Unsqueeze(y, sel)
	require.NoError(t, err)

	back, err := Squeeze(full, sel)
	require.NoError(t, err)

	require.Equal(t, y.Len(), back.Len())
	for pos := uint64(0); pos < y.Len(); pos++ {
		want, _ := y.Bit(pos)
		got, _ := back.Bit(pos)
		require.Equal(t, want, got, "pos %d", pos)
	}
}

// Apply3AndCopy is a tiny test helper computing x AND selector into a fresh
// Plain, used to check the unsqueeze(squeeze(x,S),S) == x AND S invariant.
func Apply3AndCopy(x, sel *Plain) (*Plain, error) {
	out := New(x.numBits)
	if err := Apply3(out, x, sel, OpAnd); err != nil {
		return nil, err
	}
	return out, nil
}
