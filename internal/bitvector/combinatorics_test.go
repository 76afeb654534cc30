package bitvector

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func bigIntLit(v int64) *big.Int { return big.NewInt(v) }

func TestBinomialTable_KnownValues(t *testing.T) {
	bt := newBinomialTable()
	require.Equal(t, int64(1), bt.C(5, 0).Int64())
	require.Equal(t, int64(5), bt.C(5, 1).Int64())
	require.Equal(t, int64(10), bt.C(5, 2).Int64())
	require.Equal(t, int64(1), bt.C(5, 5).Int64())
	require.Equal(t, int64(0), bt.C(5, 6).Int64())
	require.Equal(t, int64(0), bt.C(5, -1).Int64())
}

func TestCombRankUnrank_RoundTrip(t *testing.T) {
	bt := newBinomialTable()
	blockSize := 12
	for mask := 0; mask < 1<<uint(blockSize); mask++ {
		blockBits := make([]byte, numBytes(uint64(blockSize)))
		class := 0
		for i := 0; i < blockSize; i++ {
			if mask&(1<<uint(i)) != 0 {
				blockBits[i/8] |= 1 << uint(i%8)
				class++
			}
		}
		gotClass, offset := combRank(bt, blockBits, blockSize)
		require.Equal(t, class, gotClass)

		positions := combUnrank(bt, blockSize, gotClass, offset)
		reconstructed := make([]byte, len(blockBits))
		for _, p := range positions {
			reconstructed[p/8] |= 1 << uint(p%8)
		}
		require.Equal(t, blockBits, reconstructed, "mask %d", mask)
	}
}

func TestBitsNeeded(t *testing.T) {
	require.Equal(t, 0, bitsNeeded(bigIntLit(0)))
	require.Equal(t, 0, bitsNeeded(bigIntLit(1)))
	require.Equal(t, 1, bitsNeeded(bigIntLit(2)))
	require.Equal(t, 2, bitsNeeded(bigIntLit(3)))
	require.Equal(t, 2, bitsNeeded(bigIntLit(4)))
	require.Equal(t, 3, bitsNeeded(bigIntLit(5)))
}
