package fileio

import (
	"io"

	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// SaveVector writes v's body at offset and returns a VectorInfo describing
// it (offset/numBytes/compressor filled in; Name and FilterInfo are the
// caller's to set afterward).
func SaveVector(w io.WriterAt, offset int64, v bitvector.Vector, rrrBlockSize, rrrPeriod uint8) (VectorInfo, error) {
	n, err := v.SaveTo(w, offset)
	if err != nil {
		return VectorInfo{}, err
	}
	var compressor uint32
	switch v.Kind() {
	case bitvector.KindPlain:
		compressor = MakeCompressor(CompPlain, 0, 0)
	case bitvector.KindRrr:
		compressor = MakeCompressor(CompRrr, rrrBlockSize, rrrPeriod)
	case bitvector.KindRoaring:
		compressor = MakeCompressor(CompRoaring, 0, 0)
	case bitvector.KindAllZeros:
		compressor = MakeCompressor(CompAllZeros, 0, 0)
	case bitvector.KindAllOnes:
		compressor = MakeCompressor(CompAllOnes, 0, 0)
	default:
		return VectorInfo{}, xerrors.New(xerrors.KindUnsupported, "unknown bit-vector kind")
	}
	return VectorInfo{
		Compressor: compressor,
		Offset:     uint64(offset),
		NumBytes:   uint64(n),
	}, nil
}

// LoadVector reads the vector body described by info, dispatching on its
// compressor tag. For RRR, a block size/period mismatch against the
// caller's compiled-in expectations is fatal (spec.md §6: "Mismatch with
// the reader's compile-time constants is fatal"); an expected value of 0
// skips the check for that one parameter.
func LoadVector(r ioutil.ReaderAt, info VectorInfo, expectRRRBlockSize, expectRRRPeriod uint8) (bitvector.Vector, error) {
	kind := CompressorKind(info.Compressor)
	off := int64(info.Offset)
	switch kind {
	case CompPlain:
		return bitvector.LoadPlain(r, off)
	case CompAllZeros:
		return bitvector.LoadAllZeros(r, off)
	case CompAllOnes:
		return bitvector.LoadAllOnes(r, off)
	case CompRoaring:
		return bitvector.LoadRoaring(r, off)
	case CompRrr:
		blockSize := CompressorRRRBlockSize(info.Compressor)
		period := CompressorRRRPeriod(info.Compressor)
		if period == 0 {
			period = 32
		}
		if expectRRRBlockSize != 0 && blockSize != expectRRRBlockSize {
			return nil, xerrors.New(xerrors.KindFormat, "rrr block size does not match compiled-in expectation")
		}
		if expectRRRPeriod != 0 && period != expectRRRPeriod {
			return nil, xerrors.New(xerrors.KindFormat, "rrr rank sample period does not match compiled-in expectation")
		}
		return bitvector.LoadRrr(r, off)
	case CompRrrAsPlain, CompRoaringAsPlain:
		return nil, xerrors.New(xerrors.KindUnsupported, "rrr-as-plain/roaring-as-plain compressors are unfinished")
	default:
		return nil, xerrors.New(xerrors.KindFormat, "unknown compressor tag")
	}
}
