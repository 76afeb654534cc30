package bitvector

import (
	"io"
	"math/big"
	"sort"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// rankSample records the state at a block boundary every `period` blocks:
// the cumulative popcount of all preceding blocks, and the bit offset into
// the offset stream at which that block's own fields begin. Both classBits
// (fixed width per block) and offsetBits (variable width per block) are
// otherwise only decodable by a sequential walk from the start, so these
// samples are what keep Rank1/Bit/Select0 from being O(numBlocks) on every
// call.
type rankSample struct {
	cumPopcount  uint64
	offsetBitPos uint64
}

// Rrr is the RRR-compressed succinct bit vector: spec.md §4.1's "rank1,
// select0 [supported], only after decompression to plain [for mutation]"
// variant. Each fixed-size block of the source bit vector is reduced to a
// (class, offset) pair — class is the block's popcount, offset is the
// combination's index among all same-class combinations of that block
// size — and packed at near-entropy width via the combinatorial number
// system (combinatorics.go) and a raw bit-packer (bitpacker.go).
type Rrr struct {
	numBits    uint64
	blockSize  uint8
	period     uint8
	numBlocks  int
	classWidth int
	classBits  []byte
	offsetBits []byte
	samples    []rankSample
	totalPop   uint64
	bt         *binomialTable
}

// NewRrrFromPlain compresses p into an Rrr using the given block size and
// rank-sample period (both spec-bounded to ≤255; 0 selects the package
// default of 255/32 respectively).
func NewRrrFromPlain(p *Plain, blockSize, period uint8) *Rrr {
	if blockSize == 0 {
		blockSize = 255
	}
	if period == 0 {
		period = 32
	}
	n := p.numBits
	numBlocks := int((n + uint64(blockSize) - 1) / uint64(blockSize))
	if n == 0 {
		numBlocks = 0
	}
	classWidth := bitsNeeded(big.NewInt(int64(blockSize) + 1))

	bt := newBinomialTable()
	cw := NewBitWriter()
	ow := NewBitWriter()
	samples := make([]rankSample, 0, numBlocks/int(period)+1)

	var cum uint64
	for b := 0; b < numBlocks; b++ {
		if b%int(period) == 0 {
			samples = append(samples, rankSample{cumPopcount: cum, offsetBitPos: ow.BitLen()})
		}
		start := uint64(b) * uint64(blockSize)
		bsz := int(blockSize)
		if start+uint64(bsz) > n {
			bsz = int(n - start)
		}
		blockBits := extractBlockBits(p.bits, start, bsz)
		class, offset := combRank(bt, blockBits, bsz)
		cw.WriteBits(uint64(class), classWidth)
		offWidth := bitsNeeded(bt.C(bsz, class))
		ow.WriteBigBits(offset, offWidth)
		cum += uint64(class)
	}

	return &Rrr{
		numBits:    n,
		blockSize:  blockSize,
		period:     period,
		numBlocks:  numBlocks,
		classWidth: classWidth,
		classBits:  cw.Bytes(),
		offsetBits: ow.Bytes(),
		samples:    samples,
		totalPop:   cum,
		bt:         bt,
	}
}

func extractBlockBits(src []byte, start uint64, length int) []byte {
	out := make([]byte, numBytes(uint64(length)))
	for i := 0; i < length; i++ {
		pos := start + uint64(i)
		if src[pos/8]&(1<<(pos%8)) != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func (r *Rrr) blockSizeAt(b int) int {
	start := uint64(b) * uint64(r.blockSize)
	bsz := int(r.blockSize)
	if start+uint64(bsz) > r.numBits {
		bsz = int(r.numBits - start)
	}
	return bsz
}

func (r *Rrr) sampleIndex(b int) int { return b / int(r.period) }

// scan walks forward from the nearest preceding rank sample through block
// upToBlock (inclusive), returning the cumulative popcount of all blocks
// strictly before upToBlock and the decoded (class, positions) of
// upToBlock itself.
func (r *Rrr) scan(upToBlock int) (cumBefore uint64, class int, positions []int) {
	sIdx := r.sampleIndex(upToBlock)
	startBlock := sIdx * int(r.period)
	cum := r.samples[sIdx].cumPopcount

	cr := NewBitReader(r.classBits)
	cr.Seek(uint64(startBlock) * uint64(r.classWidth))
	or := NewBitReader(r.offsetBits)
	or.Seek(r.samples[sIdx].offsetBitPos)

	for blk := startBlock; blk < upToBlock; blk++ {
		c := int(cr.ReadBits(r.classWidth))
		bsz := r.blockSizeAt(blk)
		w := bitsNeeded(r.bt.C(bsz, c))
		or.ReadBigBits(w)
		cum += uint64(c)
	}

	c := int(cr.ReadBits(r.classWidth))
	bsz := r.blockSizeAt(upToBlock)
	w := bitsNeeded(r.bt.C(bsz, c))
	offVal := or.ReadBigBits(w)
	return cum, c, combUnrank(r.bt, bsz, c, offVal)
}

// Kind implements Vector.
func (r *Rrr) Kind() Kind { return KindRrr }

// Len implements Vector.
func (r *Rrr) Len() uint64 { return r.numBits }

// Bit implements Vector.
func (r *Rrr) Bit(pos uint64) (bool, error) {
	if pos >= r.numBits {
		return false, xerrors.New(xerrors.KindInvalid, "bit position out of range")
	}
	b := int(pos / uint64(r.blockSize))
	off := int(pos % uint64(r.blockSize))
	_, _, positions := r.scan(b)
	idx := sort.SearchInts(positions, off)
	return idx < len(positions) && positions[idx] == off, nil
}

// Rank1 implements Vector.
func (r *Rrr) Rank1(pos uint64) (uint64, error) {
	if pos > r.numBits {
		return 0, xerrors.New(xerrors.KindInvalid, "rank1 position out of range")
	}
	if pos == r.numBits {
		return r.totalPop, nil
	}
	if r.numBits == 0 {
		return 0, nil
	}
	b := int(pos / uint64(r.blockSize))
	off := int(pos % uint64(r.blockSize))
	cumBefore, _, positions := r.scan(b)
	count := cumBefore
	idx := sort.SearchInts(positions, off)
	count += uint64(idx)
	return count, nil
}

// Select0 implements Vector.
func (r *Rrr) Select0(i uint64) (uint64, error) {
	totalZeros := r.numBits - r.totalPop
	if i >= totalZeros {
		return 0, xerrors.New(xerrors.KindInvalid, "select0 index out of range")
	}
	target := i + 1

	sampleZeros := func(s int) uint64 {
		blockIdx := uint64(s) * uint64(r.period)
		return blockIdx*uint64(r.blockSize) - r.samples[s].cumPopcount
	}
	numSamples := len(r.samples)
	lo := sort.Search(numSamples, func(s int) bool { return sampleZeros(s) >= target })
	sIdx := lo - 1
	if sIdx < 0 {
		sIdx = 0
	}
	startBlock := sIdx * int(r.period)
	zerosSoFar := sampleZeros(sIdx)

	cr := NewBitReader(r.classBits)
	cr.Seek(uint64(startBlock) * uint64(r.classWidth))
	or := NewBitReader(r.offsetBits)
	or.Seek(r.samples[sIdx].offsetBitPos)

	for blk := startBlock; blk < r.numBlocks; blk++ {
		c := int(cr.ReadBits(r.classWidth))
		bsz := r.blockSizeAt(blk)
		w := bitsNeeded(r.bt.C(bsz, c))
		offVal := or.ReadBigBits(w)
		zerosInBlock := uint64(bsz - c)

		if zerosSoFar+zerosInBlock >= target {
			positions := combUnrank(r.bt, bsz, c, offVal)
			isOne := make([]bool, bsz)
			for _, p := range positions {
				isOne[p] = true
			}
			need := target - zerosSoFar
			var seen uint64
			for off := 0; off < bsz; off++ {
				if !isOne[off] {
					seen++
					if seen == need {
						return uint64(blk)*uint64(r.blockSize) + uint64(off), nil
					}
				}
			}
		}
		zerosSoFar += zerosInBlock
	}
	return 0, xerrors.New(xerrors.KindInvalid, "select0 index out of range")
}

// IsAllZeros implements Vector.
func (r *Rrr) IsAllZeros() bool { return r.totalPop == 0 }

// IsAllOnes implements Vector.
func (r *Rrr) IsAllOnes() bool { return r.totalPop == r.numBits }

// Popcount implements Vector.
func (r *Rrr) Popcount() uint64 { return r.totalPop }

// AsPlain decompresses the full vector to Plain (spec.md §4.1: mutation
// and bulk ops require a decompressed representation).
func (r *Rrr) AsPlain() (*Plain, error) {
	out := New(r.numBits)
	for b := 0; b < r.numBlocks; b++ {
		_, _, positions := r.scan(b)
		base := uint64(b) * uint64(r.blockSize)
		for _, p := range positions {
			pos := base + uint64(p)
			out.bits[pos/8] |= 1 << (pos % 8)
		}
	}
	return out, nil
}

// SaveTo implements Vector, writing a fully self-describing body (length,
// block size, rank period, the two packed bitstreams, and rank samples).
// The container header separately mirrors block size and rank period in
// the vector's compressor field for a decompression-free validity check.
func (r *Rrr) SaveTo(w io.WriterAt, offset int64) (int64, error) {
	buf := ioutil.GetBuffer(18)
	defer ioutil.ReleaseBuffer(buf)
	putUint64LE(buf[0:8], r.numBits)
	buf[8] = r.blockSize
	buf[9] = r.period
	putUint64LE(buf[10:18], uint64(len(r.classBits)))
	if _, err := w.WriteAt(buf, offset); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr vector header", err)
	}
	pos := offset + 18

	if len(r.classBits) > 0 {
		if _, err := w.WriteAt(r.classBits, pos); err != nil {
			return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr class stream", err)
		}
	}
	pos += int64(len(r.classBits))

	lenBuf := ioutil.GetBuffer(8)
	putUint64LE(lenBuf, uint64(len(r.offsetBits)))
	if _, err := w.WriteAt(lenBuf, pos); err != nil {
		ioutil.ReleaseBuffer(lenBuf)
		return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr offset stream length", err)
	}
	ioutil.ReleaseBuffer(lenBuf)
	pos += 8

	if len(r.offsetBits) > 0 {
		if _, err := w.WriteAt(r.offsetBits, pos); err != nil {
			return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr offset stream", err)
		}
	}
	pos += int64(len(r.offsetBits))

	sampleCountBuf := ioutil.GetBuffer(8)
	putUint64LE(sampleCountBuf, uint64(len(r.samples)))
	if _, err := w.WriteAt(sampleCountBuf, pos); err != nil {
		ioutil.ReleaseBuffer(sampleCountBuf)
		return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr sample count", err)
	}
	ioutil.ReleaseBuffer(sampleCountBuf)
	pos += 8

	sampleBuf := ioutil.GetBuffer(len(r.samples) * 16)
	defer ioutil.ReleaseBuffer(sampleBuf)
	for i, s := range r.samples {
		putUint64LE(sampleBuf[i*16:i*16+8], s.cumPopcount)
		putUint64LE(sampleBuf[i*16+8:i*16+16], s.offsetBitPos)
	}
	if len(sampleBuf) > 0 {
		if _, err := w.WriteAt(sampleBuf, pos); err != nil {
			return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr rank samples", err)
		}
	}
	pos += int64(len(sampleBuf))

	totalPopBuf := ioutil.GetBuffer(8)
	defer ioutil.ReleaseBuffer(totalPopBuf)
	putUint64LE(totalPopBuf, r.totalPop)
	if _, err := w.WriteAt(totalPopBuf, pos); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing rrr total popcount", err)
	}
	pos += 8

	return pos - offset, nil
}

// LoadRrr reads the on-disk form written by (*Rrr).SaveTo.
func LoadRrr(r ioutil.ReaderAt, offset int64) (*Rrr, error) {
	header, err := ioutil.ReadFull(r, offset, 18)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr vector header", err)
	}
	numBits := leOrder{}.Uint64(header[0:8])
	blockSize := header[8]
	period := header[9]
	classLen := leOrder{}.Uint64(header[10:18])
	pos := offset + 18

	classBits, err := ioutil.ReadFull(r, pos, int(classLen))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr class stream", err)
	}
	pos += int64(classLen)

	offsetLenBuf, err := ioutil.ReadFull(r, pos, 8)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr offset stream length", err)
	}
	offsetLen := leOrder{}.Uint64(offsetLenBuf)
	pos += 8

	offsetBits, err := ioutil.ReadFull(r, pos, int(offsetLen))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr offset stream", err)
	}
	pos += int64(offsetLen)

	sampleCountBuf, err := ioutil.ReadFull(r, pos, 8)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr sample count", err)
	}
	sampleCount := int(leOrder{}.Uint64(sampleCountBuf))
	pos += 8

	sampleBuf, err := ioutil.ReadFull(r, pos, sampleCount*16)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr rank samples", err)
	}
	pos += int64(sampleCount * 16)
	samples := make([]rankSample, sampleCount)
	for i := range samples {
		samples[i] = rankSample{
			cumPopcount:  leOrder{}.Uint64(sampleBuf[i*16 : i*16+8]),
			offsetBitPos: leOrder{}.Uint64(sampleBuf[i*16+8 : i*16+16]),
		}
	}

	totalPopBuf, err := ioutil.ReadFull(r, pos, 8)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading rrr total popcount", err)
	}
	totalPop := leOrder{}.Uint64(totalPopBuf)

	numBlocks := int((numBits + uint64(blockSize) - 1) / uint64(blockSize))
	if numBits == 0 {
		numBlocks = 0
	}
	classWidth := bitsNeeded(big.NewInt(int64(blockSize) + 1))

	return &Rrr{
		numBits:    numBits,
		blockSize:  blockSize,
		period:     period,
		numBlocks:  numBlocks,
		classWidth: classWidth,
		classBits:  classBits,
		offsetBits: offsetBits,
		samples:    samples,
		totalPop:   totalPop,
		bt:         newBinomialTable(),
	}, nil
}
