package fileio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeReaderWriterAt struct {
	buf []byte
}

func (f *fakeReaderWriterAt) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(f.buf) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:end], p)
	return len(p), nil
}

func (f *fakeReaderWriterAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.buf[off:])
	return n, nil
}

func TestHeader_EncodeDecodeRoundTrip(t *testing.T) {
	h := &Header{
		Version:     Version2,
		BfKind:      BfKindAllSome,
		SmerSize:    20,
		NumHashes:   1,
		HashSeed1:   111,
		HashSeed2:   222,
		HashModulus: 1 << 20,
		NumBits:     100003,
		SetSizeKnown: true,
		SetSize:      4096,
		Vectors: []VectorInfo{
			{Compressor: MakeCompressor(CompRrr, 255, 32), Name: "leaf-a", Offset: 0, NumBytes: 12525, FilterInfo: 0},
			{Compressor: MakeCompressor(CompRrr, 255, 32), Name: "", Offset: 12525, NumBytes: 12525, FilterInfo: 1},
		},
	}

	backing := &fakeReaderWriterAt{}
	headerSize, err := h.Encode(backing)
	require.NoError(t, err)
	require.Equal(t, 0, headerSize%16)

	decoded, err := Decode(backing)
	require.NoError(t, err)
	require.Equal(t, h.Version, decoded.Version)
	require.Equal(t, h.BfKind, decoded.BfKind)
	require.Equal(t, h.SmerSize, decoded.SmerSize)
	require.Equal(t, h.NumHashes, decoded.NumHashes)
	require.Equal(t, h.HashSeed1, decoded.HashSeed1)
	require.Equal(t, h.HashSeed2, decoded.HashSeed2)
	require.Equal(t, h.HashModulus, decoded.HashModulus)
	require.Equal(t, h.NumBits, decoded.NumBits)
	require.Equal(t, h.SetSizeKnown, decoded.SetSizeKnown)
	require.Equal(t, h.SetSize, decoded.SetSize)
	require.Len(t, decoded.Vectors, 2)
	require.Equal(t, "leaf-a", decoded.Vectors[0].Name)
	require.Equal(t, "", decoded.Vectors[1].Name)
	require.Equal(t, h.Vectors[0].Offset, decoded.Vectors[0].Offset)
	require.Equal(t, h.Vectors[1].NumBytes, decoded.Vectors[1].NumBytes)

	require.Equal(t, uint8(CompRrr), CompressorKind(decoded.Vectors[0].Compressor))
	require.Equal(t, uint8(255), CompressorRRRBlockSize(decoded.Vectors[0].Compressor))
	require.Equal(t, uint8(32), CompressorRRRPeriod(decoded.Vectors[0].Compressor))
}

func TestHeader_BadMagic(t *testing.T) {
	backing := &fakeReaderWriterAt{buf: make([]byte, 16)}
	_, err := Decode(backing)
	require.Error(t, err)
}

func TestHeader_InProgressRejected(t *testing.T) {
	h := &Header{Version: Version2, InProgress: true, BfKind: BfKindSimple}
	backing := &fakeReaderWriterAt{}
	_, err := h.Encode(backing)
	require.NoError(t, err)

	_, err = Decode(backing)
	require.Error(t, err)
}

func TestHeader_NoVectors(t *testing.T) {
	h := &Header{Version: Version2, BfKind: BfKindSimple, NumBits: 10}
	backing := &fakeReaderWriterAt{}
	_, err := h.Encode(backing)
	require.NoError(t, err)

	decoded, err := Decode(backing)
	require.NoError(t, err)
	require.Empty(t, decoded.Vectors)
}
