package query

import "github.com/howdesbt/howdesbt/internal/hashfn"

var isACGT [256]bool

func init() {
	for _, c := range []byte("ACGTacgt") {
		isACGT[c] = true
	}
}

// ExtractPositions scans seq for every smerSize-long run of bases drawn
// from {A,C,G,T} (upper or lower case; any other byte, including 'N',
// breaks the run), hashes each into a position via seed1 mod modulus, and
// drops any position >= numBits. When dedup is set, repeated positions
// are collapsed to their first occurrence, matching the behavior kmtricks
// calls "distinct" mode.
func ExtractPositions(h hashfn.Hasher, seq []byte, smerSize int, seed1, modulus, numBits uint64, dedup bool) []uint64 {
	if smerSize <= 0 || len(seq) < smerSize {
		return nil
	}

	var positions []uint64
	var seen map[uint64]bool
	if dedup {
		seen = make(map[uint64]bool)
	}

	goodRun := 0
	for i := 0; i < len(seq); i++ {
		if !isACGT[seq[i]] {
			goodRun = 0
			continue
		}
		goodRun++
		if goodRun < smerSize {
			continue
		}

		smer := seq[i+1-smerSize : i+1]
		p := hashfn.Position(h, smer, seed1, modulus)
		if p >= numBits {
			continue
		}
		if dedup {
			if seen[p] {
				continue
			}
			seen[p] = true
		}
		positions = append(positions, p)
	}
	return positions
}
