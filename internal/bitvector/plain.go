package bitvector

import (
	"io"
	"sort"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Plain is the canonical in-memory bit vector: a raw, mutable, LSB-first
// byte array. Every other variant either compresses a Plain (Rrr, Roaring)
// or stands in for one of its two degenerate all-bits states (AllZeros,
// AllOnes); decompression of any of those always produces a Plain.
type Plain struct {
	numBits uint64
	bits    []byte // len(bits) == numBytes(numBits)

	rank *rankSupport // lazily built, nil after any mutation
}

// New allocates a zero-filled Plain of the given length.
func New(numBits uint64) *Plain {
	return &Plain{numBits: numBits, bits: make([]byte, numBytes(numBits))}
}

// NewFromBytes wraps an existing byte slice as a Plain vector without
// copying. The caller must not mutate buf afterward except through the
// returned Plain.
func NewFromBytes(numBits uint64, buf []byte) *Plain {
	return &Plain{numBits: numBits, bits: buf}
}

// Kind implements Vector.
func (p *Plain) Kind() Kind { return KindPlain }

// Len implements Vector.
func (p *Plain) Len() uint64 { return p.numBits }

// Bytes exposes the raw backing buffer (read path for save/compress; the
// don't-care bits beyond numBits in the final byte are whatever they
// happen to hold).
func (p *Plain) Bytes() []byte { return p.bits }

func (p *Plain) invalidateRankSupport() { p.rank = nil }

// Bit implements Vector.
func (p *Plain) Bit(pos uint64) (bool, error) {
	if pos >= p.numBits {
		return false, xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	return p.bits[pos/8]&(1<<(pos%8)) != 0, nil
}

// SetBit sets or clears the bit at pos. Plain is always mutable.
func (p *Plain) SetBit(pos uint64, v bool) error {
	if pos >= p.numBits {
		return xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	byteIdx := pos / 8
	mask := byte(1 << (pos % 8))
	if v {
		p.bits[byteIdx] |= mask
	} else {
		p.bits[byteIdx] &^= mask
	}
	p.invalidateRankSupport()
	return nil
}

// Fill sets every bit to v.
func (p *Plain) Fill(v bool) {
	var b byte
	if v {
		b = 0xFF
	}
	for i := range p.bits {
		p.bits[i] = b
	}
	p.invalidateRankSupport()
}

// Complement flips every bit in place.
func (p *Plain) Complement() {
	for i := range p.bits {
		p.bits[i] = ^p.bits[i]
	}
	p.invalidateRankSupport()
}

// Copy overwrites the receiver's bits with src's. The two vectors must have
// identical length.
func (p *Plain) Copy(src *Plain) error {
	if p.numBits != src.numBits {
		return errLengthMismatch("Copy")
	}
	copy(p.bits, src.bits)
	p.invalidateRankSupport()
	return nil
}

// Clone returns an independent copy of the receiver.
func (p *Plain) Clone() *Plain {
	buf := make([]byte, len(p.bits))
	copy(buf, p.bits)
	return &Plain{numBits: p.numBits, bits: buf}
}

// IsAllZeros implements Vector.
func (p *Plain) IsAllZeros() bool {
	full := int(p.numBits / 8)
	for i := 0; i < full; i++ {
		if p.bits[i] != 0 {
			return false
		}
	}
	if full < len(p.bits) {
		if p.bits[full]&tailMask(p.numBits) != 0 {
			return false
		}
	}
	return true
}

// IsAllOnes implements Vector.
func (p *Plain) IsAllOnes() bool {
	full := int(p.numBits / 8)
	for i := 0; i < full; i++ {
		if p.bits[i] != 0xFF {
			return false
		}
	}
	if full < len(p.bits) {
		mask := tailMask(p.numBits)
		if p.bits[full]&mask != mask {
			return false
		}
	}
	return true
}

// Popcount implements Vector.
func (p *Plain) Popcount() uint64 {
	return popcountBytes(p.bits, p.numBits)
}

// AsPlain implements Vector: always returns an independent copy so callers
// can mutate it without aliasing the receiver.
func (p *Plain) AsPlain() (*Plain, error) {
	return p.Clone(), nil
}

func (p *Plain) ensureRank() *rankSupport {
	if p.rank == nil {
		p.rank = buildRankSupport(p.bits, p.numBits)
	}
	return p.rank
}

// Rank1 returns the number of 1-bits in [0, pos).
func (p *Plain) Rank1(pos uint64) (uint64, error) {
	if pos > p.numBits {
		return 0, xerrors.New(xerrors.KindInvalid, "rank1 position out of range")
	}
	return p.ensureRank().rank1(pos), nil
}

// Select0 returns the position of the i-th zero (0-indexed).
func (p *Plain) Select0(i uint64) (uint64, error) {
	pos, ok := p.ensureRank().select0(i)
	if !ok {
		return 0, xerrors.New(xerrors.KindInvalid, "select0 index out of range")
	}
	return pos, nil
}

// SaveTo writes the plain on-disk form: an 8-byte bit-length field followed
// by ceil(numBits/8) packed bytes (spec.md §6).
func (p *Plain) SaveTo(w io.WriterAt, offset int64) (int64, error) {
	header := ioutil.GetBuffer(8)
	defer ioutil.ReleaseBuffer(header)
	putUint64LE(header, p.numBits)
	if _, err := w.WriteAt(header, offset); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing plain vector length", err)
	}
	if len(p.bits) > 0 {
		if _, err := w.WriteAt(p.bits, offset+8); err != nil {
			return 0, xerrors.Wrap(xerrors.KindIO, "writing plain vector bits", err)
		}
	}
	return 8 + int64(len(p.bits)), nil
}

// LoadPlain reads the plain on-disk form written by SaveTo: an 8-byte
// length field (raw accessors skip exactly these 8 bytes, per spec.md §6)
// then the packed bits.
func LoadPlain(r ioutil.ReaderAt, offset int64) (*Plain, error) {
	numBits, err := ioutil.ReadUint64(r, offset, leOrder{})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading plain vector length", err)
	}
	buf, err := ioutil.ReadFull(r, offset+8, numBytes(numBits))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading plain vector bits", err)
	}
	return &Plain{numBits: numBits, bits: buf}, nil
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// leOrder adapts encoding/binary.LittleEndian to ioutil.ReadUint64's
// binary.ByteOrder parameter without importing encoding/binary here twice
// over; it simply delegates.
type leOrder struct{}

func (leOrder) Uint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func (leOrder) Uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func (leOrder) Uint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
func (leOrder) PutUint16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func (leOrder) PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func (leOrder) PutUint64(b []byte, v uint64) { putUint64LE(b, v) }
func (leOrder) String() string               { return "LittleEndian" }

// --- rank/select support -----------------------------------------------

// rankSupport is a lazily-built, mutation-invalidated cache of cumulative
// popcounts at byte boundaries, giving rank1 in O(1) beyond a byte's worth
// of residual bits and select0 in O(log n) via binary search over that
// prefix (spec.md §9: "logical correctness, not a particular space
// bound"). It holds a reference (not a copy) into the Plain's backing
// buffer; Plain invalidates (nils out) its rankSupport on every mutation,
// so a live rankSupport is always in sync with its bits.
type rankSupport struct {
	bits       []byte
	onesPrefix []uint32 // onesPrefix[k] = popcount of bits[0:k] (k in bytes)
	numBits    uint64
}

func buildRankSupport(bits []byte, numBits uint64) *rankSupport {
	prefix := make([]uint32, len(bits)+1)
	full := int(numBits / 8)
	var running uint32
	for i := 0; i < len(bits); i++ {
		b := bits[i]
		if i == full {
			b &= tailMask(numBits)
		} else if i > full {
			b = 0
		}
		prefix[i] = running
		running += uint32(popcountTable[b])
	}
	prefix[len(bits)] = running
	return &rankSupport{bits: bits, onesPrefix: prefix, numBits: numBits}
}

// rank1 returns the number of 1-bits in [0, pos).
func (rs *rankSupport) rank1(pos uint64) uint64 {
	byteIdx := pos / 8
	bitOff := pos % 8
	total := uint64(rs.onesPrefix[byteIdx])
	if bitOff > 0 {
		partialMask := byte(1<<bitOff) - 1
		total += uint64(popcountTable[rs.bits[byteIdx]&partialMask])
	}
	return total
}

// select0 returns the position of the i-th zero (0-indexed) and whether it
// exists.
func (rs *rankSupport) select0(i uint64) (uint64, bool) {
	n := len(rs.onesPrefix) - 1 // number of bytes
	target := i + 1             // 1-indexed count of zeros we need to reach

	// Find the first byte boundary k (1..n) where the cumulative zero
	// count reaches target; the i-th zero lives in byte k-1.
	k := sort.Search(n, func(k int) bool {
		zeros := uint64(k+1)*8 - uint64(rs.onesPrefix[k+1])
		return zeros >= target
	})
	if k >= n {
		return 0, false
	}

	zerosBeforeByte := uint64(k)*8 - uint64(rs.onesPrefix[k])
	need := target - zerosBeforeByte // 1-indexed zero to find within byte k
	b := rs.bits[k]
	if k == int(rs.numBits/8) {
		// Tail byte: don't-care high bits beyond numBits are never zeros
		// we can select, so force them to 1 (not a zero) for this scan.
		b |= ^tailMask(rs.numBits)
	}
	var seen uint64
	for bit := 0; bit < 8; bit++ {
		if b&(1<<uint(bit)) == 0 {
			seen++
			if seen == need {
				return uint64(k)*8 + uint64(bit), true
			}
		}
	}
	return 0, false
}
