package bitvector

import (
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"
)

// TestPlain_PopcountRank1AgainstOracle cross-checks Popcount and Rank1 against
// an independent bitset implementation on a pseudo-random fill pattern, since
// a generic word-oriented bitset doesn't model the byte-level tail masking
// Plain relies on and so makes a useful oracle rather than a replacement.
func TestPlain_PopcountRank1AgainstOracle(t *testing.T) {
	const n = 251 // deliberately not byte-aligned, to exercise the tail mask
	rng := rand.New(rand.NewSource(1))

	p := New(n)
	oracle := bitset.New(n)
	for i := uint64(0); i < n; i++ {
		if rng.Intn(3) == 0 {
			require.NoError(t, p.SetBit(i, true))
			oracle.Set(uint(i))
		}
	}

	require.Equal(t, uint64(oracle.Count()), p.Popcount())

	var want uint64
	for i := uint64(0); i < n; i++ {
		got, err := p.Rank1(i)
		require.NoError(t, err)
		require.Equal(t, want, got, "rank1(%d)", i)
		if oracle.Test(uint(i)) {
			want++
		}
	}
}
