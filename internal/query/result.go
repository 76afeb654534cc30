package query

import "math"

// AdjustedCount estimates the true number of matching k-mers at a leaf,
// correcting for the Bloom filter's expected false-positive rate (spec.md
// §4.5). observed is the apparent pass count (Match.NumPassed) out of
// numPositions total query positions; k is the filter's hash count, n its
// known set size, m its bit-vector length. The result is clamped at 0.
func AdjustedCount(observed, numPositions int, k int, n, m uint64) int {
	if numPositions == 0 || m == 0 {
		return 0
	}
	fpr := math.Pow(1-math.Exp(-float64(k)*float64(n)/float64(m)), float64(k))
	raw := (float64(observed)/float64(numPositions) - fpr) / (1 - fpr) * float64(numPositions)
	adjusted := int(math.Round(raw))
	if adjusted < 0 {
		return 0
	}
	return adjusted
}
