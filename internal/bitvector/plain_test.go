package bitvector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlain_BitSetBit(t *testing.T) {
	p := New(17)
	ok, err := p.Bit(5)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, p.SetBit(5, true))
	ok, err = p.Bit(5)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.SetBit(5, false))
	ok, err = p.Bit(5)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPlain_BitOutOfRange(t *testing.T) {
	p := New(8)
	_, err := p.Bit(8)
	require.Error(t, err)
	require.Error(t, p.SetBit(8, true))
}

func TestPlain_FillAndIsAll(t *testing.T) {
	p := New(13)
	require.True(t, p.IsAllZeros())
	require.False(t, p.IsAllOnes())

	p.Fill(true)
	require.True(t, p.IsAllOnes())
	require.False(t, p.IsAllZeros())

	p.Fill(false)
	require.True(t, p.IsAllZeros())
}

func TestPlain_Complement(t *testing.T) {
	p := New(10)
	require.NoError(t, p.SetBit(2, true))
	p.Complement()
	ok, err := p.Bit(2)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = p.Bit(3)
	require.NoError(t, err)
	require.True(t, ok)
	// bit 2 is now clear, so the vector is not all ones
	require.True(t, p.IsAllOnes() == false)
}

func TestPlain_CopyLengthMismatch(t *testing.T) {
	a := New(8)
	b := New(16)
	require.Error(t, a.Copy(b))
}

func TestPlain_Clone(t *testing.T) {
	p := New(9)
	require.NoError(t, p.SetBit(0, true))
	c := p.Clone()
	require.NoError(t, c.SetBit(1, true))
	ok, _ := p.Bit(1)
	require.False(t, ok, "mutating the clone must not affect the original")
}

func TestPlain_Popcount(t *testing.T) {
	p := New(20)
	for _, pos := range []uint64{0, 3, 7, 8, 19} {
		require.NoError(t, p.SetBit(pos, true))
	}
	require.Equal(t, uint64(5), p.Popcount())
}

func TestPlain_Rank1(t *testing.T) {
	p := New(20)
	for _, pos := range []uint64{0, 3, 7, 8, 19} {
		require.NoError(t, p.SetBit(pos, true))
	}
	r, err := p.Rank1(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), r)

	r, err = p.Rank1(4)
	require.NoError(t, err)
	require.Equal(t, uint64(2), r) // bits 0,3 counted, 4 exclusive

	r, err = p.Rank1(9)
	require.NoError(t, err)
	require.Equal(t, uint64(4), r) // bits 0,3,7,8

	r, err = p.Rank1(20)
	require.NoError(t, err)
	require.Equal(t, uint64(5), r)
}

func TestPlain_Rank1OutOfRange(t *testing.T) {
	p := New(8)
	_, err := p.Rank1(9)
	require.Error(t, err)
}

func TestPlain_Select0(t *testing.T) {
	p := New(10)
	// set all bits except 2 and 7
	p.Fill(true)
	require.NoError(t, p.SetBit(2, false))
	require.NoError(t, p.SetBit(7, false))

	pos, err := p.Select0(0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), pos)

	pos, err = p.Select0(1)
	require.NoError(t, err)
	require.Equal(t, uint64(7), pos)

	_, err = p.Select0(2)
	require.Error(t, err)
}

func TestPlain_Select0AcrossByteBoundary(t *testing.T) {
	p := New(24)
	p.Fill(true)
	for _, pos := range []uint64{0, 9, 17, 23} {
		require.NoError(t, p.SetBit(pos, false))
	}
	for i, want := range []uint64{0, 9, 17, 23} {
		got, err := p.Select0(uint64(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestPlain_RankInvalidatesOnMutation(t *testing.T) {
	p := New(16)
	_, err := p.Rank1(8) // build rank cache
	require.NoError(t, err)
	require.NoError(t, p.SetBit(3, true))
	r, err := p.Rank1(8)
	require.NoError(t, err)
	require.Equal(t, uint64(1), r)
}

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

func TestPlain_SaveLoadRoundTrip(t *testing.T) {
	p := New(37)
	for _, pos := range []uint64{0, 1, 8, 36} {
		require.NoError(t, p.SetBit(pos, true))
	}
	backing := &fakeReaderWriterAt{}
	n, err := p.SaveTo(backing, 0)
	require.NoError(t, err)
	require.Equal(t, int64(8+numBytes(37)), n)

	loaded, err := LoadPlain(backing, 0)
	require.NoError(t, err)
	require.Equal(t, p.Len(), loaded.Len())
	for pos := uint64(0); pos < 37; pos++ {
		want, _ := p.Bit(pos)
		got, _ := loaded.Bit(pos)
		require.Equal(t, want, got, "bit %d", pos)
	}
}
