package bitvector

import "math/big"

// binomialTable memoizes C(n, k) via Pascal's rule. RRR block sizes are
// bounded by 255, but the binomial values themselves routinely exceed
// 64 bits (C(255,127) has roughly 75 decimal digits), hence math/big.
type binomialTable struct {
	cache map[[2]int]*big.Int
}

func newBinomialTable() *binomialTable {
	return &binomialTable{cache: make(map[[2]int]*big.Int)}
}

func (t *binomialTable) C(n, k int) *big.Int {
	if k < 0 || n < 0 || k > n {
		return big.NewInt(0)
	}
	if k == 0 || k == n {
		return big.NewInt(1)
	}
	key := [2]int{n, k}
	if v, ok := t.cache[key]; ok {
		return v
	}
	v := new(big.Int).Add(t.C(n-1, k-1), t.C(n-1, k))
	t.cache[key] = v
	return v
}

// bitsNeeded returns the number of bits required to represent any value in
// [0, count), i.e. ceil(log2(count)), with bitsNeeded(0) == bitsNeeded(1) == 0.
func bitsNeeded(count *big.Int) int {
	if count.Cmp(big.NewInt(1)) <= 0 {
		return 0
	}
	return new(big.Int).Sub(count, big.NewInt(1)).BitLen()
}

// combRank maps a block's set-bit positions (within [0, blockSize)) to its
// class (popcount) and its offset: the combination's index, in the
// standard combinatorial number system, among all C(blockSize, class)
// same-class combinations. For ascending set-bit positions p_1 < ... <
// p_k, offset = sum_{i=1}^{k} C(p_i, i).
func combRank(bt *binomialTable, blockBits []byte, blockSize int) (class int, offset *big.Int) {
	offset = new(big.Int)
	i := 1
	for p := 0; p < blockSize; p++ {
		if blockBits[p/8]&(1<<uint(p%8)) == 0 {
			continue
		}
		offset.Add(offset, bt.C(p, i))
		i++
	}
	class = i - 1
	return class, offset
}

// combUnrank is the inverse of combRank: given a class (popcount) and
// offset, it reconstructs the ascending list of set-bit positions within
// a block of blockSize bits.
func combUnrank(bt *binomialTable, blockSize, class int, offset *big.Int) []int {
	if class == 0 {
		return nil
	}
	positions := make([]int, class)
	remaining := new(big.Int).Set(offset)
	upper := blockSize - 1
	for i := class; i >= 1; i-- {
		c := upper
		for c >= i-1 {
			if bt.C(c, i).Cmp(remaining) <= 0 {
				break
			}
			c--
		}
		positions[i-1] = c
		remaining.Sub(remaining, bt.C(c, i))
		upper = c - 1
	}
	return positions
}
