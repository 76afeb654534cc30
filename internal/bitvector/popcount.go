package bitvector

import "math/bits"

// popcountTable is the 8-bit lookup table the contract calls for (spec.md
// §4.1: "The popcount helpers use an 8-bit lookup table"). Built once at
// init time; every byte-wise popcount in this package goes through it
// rather than calling bits.OnesCount8 at the hot-path call site.
var popcountTable [256]uint8

func init() {
	for i := range popcountTable {
		popcountTable[i] = uint8(bits.OnesCount8(uint8(i)))
	}
}

// numBytes returns the number of bytes needed to hold numBits bits.
func numBytes(numBits uint64) int {
	return int((numBits + 7) / 8)
}

// tailMask returns the mask selecting the meaningful low bits of the final
// byte of a numBits-length buffer. If numBits is a multiple of 8 (no
// partial tail byte), it returns 0xFF (the whole last byte is meaningful).
func tailMask(numBits uint64) byte {
	r := numBits % 8
	if r == 0 {
		return 0xFF
	}
	return byte(1<<r) - 1
}

// popcountBytes counts set bits across buf, treating it as exactly numBits
// meaningful bits: only the legitimate low bits of the final partial byte
// are counted, so don't-care high bits left over from a prior buffer
// reuse never get counted.
func popcountBytes(buf []byte, numBits uint64) uint64 {
	if len(buf) == 0 {
		return 0
	}
	full := int(numBits / 8)
	var total uint64
	for i := 0; i < full && i < len(buf); i++ {
		total += uint64(popcountTable[buf[i]])
	}
	if full < len(buf) {
		total += uint64(popcountTable[buf[full]&tailMask(numBits)])
	}
	return total
}

// popcountOfOp counts set bits in (a OP b) without materializing the
// result, masking the final byte by numBits the same way popcountBytes
// does. a and b must be the same length in bytes as required by numBits.
func popcountOfOp(a, b []byte, numBits uint64, op BinOp) uint64 {
	full := int(numBits / 8)
	var total uint64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < full && i < n; i++ {
		total += uint64(popcountTable[applyByteOp(a[i], b[i], op)])
	}
	if full < n {
		masked := applyByteOp(a[full], b[full], op) & tailMask(numBits)
		total += uint64(popcountTable[masked])
	}
	return total
}
