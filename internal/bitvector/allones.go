package bitvector

import (
	"io"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// AllOnes is the degenerate constant variant for a vector known to be
// entirely one: every bit query is answered without touching any buffer
// (spec.md §4.1). It holds no bits at all, so it is never mutable.
type AllOnes struct {
	numBits uint64
}

// NewAllOnes returns an AllOnes vector of the given length.
func NewAllOnes(numBits uint64) *AllOnes { return &AllOnes{numBits: numBits} }

// Kind implements Vector.
func (o *AllOnes) Kind() Kind { return KindAllOnes }

// Len implements Vector.
func (o *AllOnes) Len() uint64 { return o.numBits }

// Bit implements Vector: always true.
func (o *AllOnes) Bit(pos uint64) (bool, error) {
	if pos >= o.numBits {
		return false, xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	return true, nil
}

// Rank1 implements Vector: rank1(pos) == pos, since every preceding bit is set.
func (o *AllOnes) Rank1(pos uint64) (uint64, error) {
	if pos > o.numBits {
		return 0, xerrors.New(xerrors.KindInvalid, "rank1 position out of range")
	}
	return pos, nil
}

// Select0 implements Vector: undefined, since an all-ones vector has no
// zero bit to select.
func (o *AllOnes) Select0(i uint64) (uint64, error) {
	return 0, xerrors.New(xerrors.KindInvalid, "select0 on an all-ones vector has no answer")
}

// IsAllZeros implements Vector: true only for length 0.
func (o *AllOnes) IsAllZeros() bool { return o.numBits == 0 }

// IsAllOnes implements Vector: always true.
func (o *AllOnes) IsAllOnes() bool { return true }

// Popcount implements Vector: every bit is set.
func (o *AllOnes) Popcount() uint64 { return o.numBits }

// AsPlain implements Vector.
func (o *AllOnes) AsPlain() (*Plain, error) {
	p := New(o.numBits)
	p.Fill(true)
	return p, nil
}

// SaveTo implements Vector: an 8-byte bit-length field is the entire body.
func (o *AllOnes) SaveTo(w io.WriterAt, offset int64) (int64, error) {
	buf := ioutil.GetBuffer(8)
	defer ioutil.ReleaseBuffer(buf)
	putUint64LE(buf, o.numBits)
	if _, err := w.WriteAt(buf, offset); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing allones vector length", err)
	}
	return 8, nil
}

// LoadAllOnes reads the on-disk form written by (*AllOnes).SaveTo.
func LoadAllOnes(r ioutil.ReaderAt, offset int64) (*AllOnes, error) {
	numBits, err := ioutil.ReadUint64(r, offset, leOrder{})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading allones vector length", err)
	}
	return &AllOnes{numBits: numBits}, nil
}
