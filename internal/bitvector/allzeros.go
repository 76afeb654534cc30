package bitvector

import (
	"io"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// AllZeros is the degenerate constant variant for a vector known to be
// entirely zero: every bit query is answered without touching any buffer
// (spec.md §4.1). It holds no bits at all, so it is never mutable.
type AllZeros struct {
	numBits uint64
}

// NewAllZeros returns an AllZeros vector of the given length.
func NewAllZeros(numBits uint64) *AllZeros { return &AllZeros{numBits: numBits} }

// Kind implements Vector.
func (z *AllZeros) Kind() Kind { return KindAllZeros }

// Len implements Vector.
func (z *AllZeros) Len() uint64 { return z.numBits }

// Bit implements Vector: always false.
func (z *AllZeros) Bit(pos uint64) (bool, error) {
	if pos >= z.numBits {
		return false, xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	return false, nil
}

// Rank1 implements Vector: identically zero everywhere.
func (z *AllZeros) Rank1(pos uint64) (uint64, error) {
	if pos > z.numBits {
		return 0, xerrors.New(xerrors.KindInvalid, "rank1 position out of range")
	}
	return 0, nil
}

// Select0 implements Vector: the i-th zero is simply at position i, since
// every position is zero.
func (z *AllZeros) Select0(i uint64) (uint64, error) {
	if i >= z.numBits {
		return 0, xerrors.New(xerrors.KindInvalid, "select0 index out of range")
	}
	return i, nil
}

// IsAllZeros implements Vector: always true.
func (z *AllZeros) IsAllZeros() bool { return true }

// IsAllOnes implements Vector: true only for length 0.
func (z *AllZeros) IsAllOnes() bool { return z.numBits == 0 }

// Popcount implements Vector: always zero.
func (z *AllZeros) Popcount() uint64 { return 0 }

// AsPlain implements Vector.
func (z *AllZeros) AsPlain() (*Plain, error) { return New(z.numBits), nil }

// SaveTo implements Vector: an 8-byte bit-length field is the entire body.
func (z *AllZeros) SaveTo(w io.WriterAt, offset int64) (int64, error) {
	buf := ioutil.GetBuffer(8)
	defer ioutil.ReleaseBuffer(buf)
	putUint64LE(buf, z.numBits)
	if _, err := w.WriteAt(buf, offset); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing allzeros vector length", err)
	}
	return 8, nil
}

// LoadAllZeros reads the on-disk form written by (*AllZeros).SaveTo.
func LoadAllZeros(r ioutil.ReaderAt, offset int64) (*AllZeros, error) {
	numBits, err := ioutil.ReadUint64(r, offset, leOrder{})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading allzeros vector length", err)
	}
	return &AllZeros{numBits: numBits}, nil
}
