package bitvector

import (
	"io"

	"github.com/RoaringBitmap/roaring"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Roaring is the sparse-friendly compressed variant backed by
// github.com/RoaringBitmap/roaring. Unlike Rrr it offers no native
// rank/select; both require decompression to Plain first (spec.md §4.1:
// "only after decompression to plain"), and additions are the only
// mutation it accepts directly.
type Roaring struct {
	numBits uint64
	bm      *roaring.Bitmap
}

// NewRoaringFromPlain compresses p's set-bit positions into a Roaring
// bitmap.
func NewRoaringFromPlain(p *Plain) (*Roaring, error) {
	if p.numBits > 1<<32 {
		return nil, xerrors.New(xerrors.KindUnsupported, "roaring: vector too long for 32-bit positions")
	}
	bm := roaring.New()
	full := int(p.numBits / 8)
	for i := 0; i < full; i++ {
		b := p.bits[i]
		if b == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				bm.Add(uint32(i*8 + bit))
			}
		}
	}
	if full < len(p.bits) {
		b := p.bits[full] & tailMask(p.numBits)
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				bm.Add(uint32(full*8 + bit))
			}
		}
	}
	bm.RunOptimize()
	return &Roaring{numBits: p.numBits, bm: bm}, nil
}

// Kind implements Vector.
func (r *Roaring) Kind() Kind { return KindRoaring }

// Len implements Vector.
func (r *Roaring) Len() uint64 { return r.numBits }

// Bit implements Vector.
func (r *Roaring) Bit(pos uint64) (bool, error) {
	if pos >= r.numBits {
		return false, xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	return r.bm.Contains(uint32(pos)), nil
}

// Add sets the bit at pos, the one mutation Roaring accepts without first
// decompressing (spec.md §4.1).
func (r *Roaring) Add(pos uint64) error {
	if pos >= r.numBits {
		return xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	r.bm.Add(uint32(pos))
	return nil
}

// Rank1 is unsupported on the compressed form; callers needing rank/select
// must decompress via AsPlain first.
func (r *Roaring) Rank1(pos uint64) (uint64, error) {
	return 0, errWriteProtected("Roaring.Rank1: decompress via AsPlain first")
}

// Select0 is unsupported on the compressed form; see Rank1.
func (r *Roaring) Select0(i uint64) (uint64, error) {
	return 0, errWriteProtected("Roaring.Select0: decompress via AsPlain first")
}

// IsAllZeros implements Vector.
func (r *Roaring) IsAllZeros() bool { return r.bm.IsEmpty() }

// IsAllOnes implements Vector.
func (r *Roaring) IsAllOnes() bool { return uint64(r.bm.GetCardinality()) == r.numBits }

// Popcount implements Vector.
func (r *Roaring) Popcount() uint64 { return r.bm.GetCardinality() }

// AsPlain decompresses to Plain.
func (r *Roaring) AsPlain() (*Plain, error) {
	out := New(r.numBits)
	it := r.bm.Iterator()
	for it.HasNext() {
		pos := uint64(it.Next())
		out.bits[pos/8] |= 1 << (pos % 8)
	}
	return out, nil
}

// SaveTo implements Vector: 8 bytes portable serialized size N, 8 bytes
// numBits, then N bytes of the bitmap's native portable serialization
// (spec.md §6).
func (r *Roaring) SaveTo(w io.WriterAt, offset int64) (int64, error) {
	body, err := r.bm.ToBytes()
	if err != nil {
		return 0, xerrors.Wrap(xerrors.KindFormat, "serializing roaring bitmap", err)
	}

	header := ioutil.GetBuffer(16)
	defer ioutil.ReleaseBuffer(header)
	putUint64LE(header[0:8], uint64(len(body)))
	putUint64LE(header[8:16], r.numBits)
	if _, err := w.WriteAt(header, offset); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing roaring header", err)
	}
	if len(body) > 0 {
		if _, err := w.WriteAt(body, offset+16); err != nil {
			return 0, xerrors.Wrap(xerrors.KindIO, "writing roaring body", err)
		}
	}
	return 16 + int64(len(body)), nil
}

// LoadRoaring reads the on-disk form written by (*Roaring).SaveTo.
func LoadRoaring(r ioutil.ReaderAt, offset int64) (*Roaring, error) {
	header, err := ioutil.ReadFull(r, offset, 16)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading roaring header", err)
	}
	size := leOrder{}.Uint64(header[0:8])
	numBits := leOrder{}.Uint64(header[8:16])

	body, err := ioutil.ReadFull(r, offset+16, int(size))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading roaring body", err)
	}
	bm := roaring.New()
	if _, err := bm.FromBuffer(body); err != nil {
		return nil, xerrors.Wrap(xerrors.KindFormat, "parsing roaring body", err)
	}
	return &Roaring{numBits: numBits, bm: bm}, nil
}
