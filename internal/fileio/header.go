// Package fileio implements the container ("bloom filter file") binary
// format: a single little-endian header describing some number of bit
// vectors, followed by their packed bodies back-to-back, plus the
// process-wide single-open-file cache callers use to avoid juggling
// *os.File handles themselves (spec.md §6, §3, §9).
package fileio

import (
	"io"

	"github.com/howdesbt/howdesbt/internal/ioutil"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Magic values identifying the two lifecycle states of a container file.
const (
	MagicFinal      uint64 = 0xD532006662544253
	MagicInProgress uint64 = 0xCD96AD692C96649A
)

// Supported header versions.
const (
	Version1 uint32 = 1
	Version2 uint32 = 2
)

// BfKind names the tagged filter kind a container's vectors belong to.
type BfKind uint32

const (
	BfKindSimple          BfKind = 1
	BfKindAllSome         BfKind = 2
	BfKindDetermined      BfKind = 3
	BfKindDeterminedBrief BfKind = 4
	BfKindIntersection    BfKind = 0xFFFFFF00
)

// Compressor low-byte tags (byte 0 of the packed compressor field).
const (
	CompUnknown        uint8 = 0
	CompPlain          uint8 = 1
	CompAllZeros       uint8 = 2
	CompAllOnes        uint8 = 3
	CompRrr            uint8 = 4
	CompRoaring        uint8 = 5
	CompRrrAsPlain     uint8 = 6
	CompRoaringAsPlain uint8 = 7
)

// maxVectorBytes is the container format's sanity limit on any single
// vector's on-disk byte size.
const maxVectorBytes = 1_000_000_000

// MakeCompressor packs a compressor tag with RRR's block size and rank
// sample period (unused, left zero, for every other kind).
func MakeCompressor(kind uint8, rrrBlockSize, rrrPeriod uint8) uint32 {
	return uint32(kind) | uint32(rrrBlockSize)<<8 | uint32(rrrPeriod)<<16
}

// CompressorKind extracts the low-byte compressor tag.
func CompressorKind(c uint32) uint8 { return uint8(c) }

// CompressorRRRBlockSize extracts byte 1 (meaningful only when
// CompressorKind(c) == CompRrr).
func CompressorRRRBlockSize(c uint32) uint8 { return uint8(c >> 8) }

// CompressorRRRPeriod extracts byte 2 (0 means the default of 32).
func CompressorRRRPeriod(c uint32) uint8 { return uint8(c >> 16) }

// VectorInfo is one 0x20-byte bfvectorinfo entry.
type VectorInfo struct {
	Compressor uint32
	Name       string // empty means "no name" (on-disk NameOffset == 0)
	Offset     uint64
	NumBytes   uint64
	FilterInfo uint64
}

const vectorInfoSize = 32

// Header is the in-memory form of a container file's full version-2
// header. Version-1 files are accepted read-only with SetSizeKnown/SetSize
// absent (spec.md §6); Decode fills those with their zero values in that
// case.
type Header struct {
	Version      uint32
	InProgress   bool
	BfKind       BfKind
	SmerSize     uint32
	NumHashes    uint32
	HashSeed1    uint64
	HashSeed2    uint64
	HashModulus  uint64
	NumBits      uint64
	SetSizeKnown bool
	SetSize      uint64
	Vectors      []VectorInfo
}

// fixedFieldsSize is the byte count of the full-header fields between the
// 16-byte prefix and the bfvectorinfo array.
const fixedFieldsSize = 4 /*bfKind*/ + 4 /*padding1*/ + 4 /*smerSize*/ + 4 /*numHashes*/ +
	8 /*hashSeed1*/ + 8 /*hashSeed2*/ + 8 /*hashModulus*/ + 8 /*numBits*/ +
	4 /*numVectors*/ + 4 /*setSizeKnown*/ + 8 /*setSize*/

func align16(n int) int { return (n + 15) &^ 15 }

// Encode writes the header (prefix, fixed fields, vectorinfo array, name
// table, then padding out to a 16-byte boundary) to w at offset 0, and
// returns the total header size in bytes — the byte offset at which the
// first vector body must begin.
func (h *Header) Encode(w io.WriterAt) (int, error) {
	bodySize := fixedFieldsSize + len(h.Vectors)*vectorInfoSize
	nameOffsets := make([]uint32, len(h.Vectors))
	nameTable := make([]byte, 0, 64)
	for i, v := range h.Vectors {
		if v.Name == "" {
			nameOffsets[i] = 0
			continue
		}
		nameOffsets[i] = uint32(16 + bodySize + len(nameTable))
		nameTable = append(nameTable, []byte(v.Name)...)
		nameTable = append(nameTable, 0)
	}
	headerSize := align16(16 + bodySize + len(nameTable))

	buf := make([]byte, headerSize)
	order := leByteOrder{}
	order.PutUint64(buf[0:8], pickMagic(h.InProgress))
	order.PutUint32(buf[8:12], uint32(headerSize))
	order.PutUint32(buf[12:16], h.Version)

	off := 16
	order.PutUint32(buf[off:off+4], uint32(h.BfKind))
	off += 4
	off += 4 // padding1, already zero
	order.PutUint32(buf[off:off+4], h.SmerSize)
	off += 4
	order.PutUint32(buf[off:off+4], h.NumHashes)
	off += 4
	order.PutUint64(buf[off:off+8], h.HashSeed1)
	off += 8
	order.PutUint64(buf[off:off+8], h.HashSeed2)
	off += 8
	order.PutUint64(buf[off:off+8], h.HashModulus)
	off += 8
	order.PutUint64(buf[off:off+8], h.NumBits)
	off += 8
	order.PutUint32(buf[off:off+4], uint32(len(h.Vectors)))
	off += 4
	order.PutUint32(buf[off:off+4], boolToU32(h.SetSizeKnown))
	off += 4
	order.PutUint64(buf[off:off+8], h.SetSize)
	off += 8

	for i, v := range h.Vectors {
		base := off + i*vectorInfoSize
		order.PutUint32(buf[base:base+4], v.Compressor)
		order.PutUint32(buf[base+4:base+8], nameOffsets[i])
		order.PutUint64(buf[base+8:base+16], v.Offset)
		order.PutUint64(buf[base+16:base+24], v.NumBytes)
		order.PutUint64(buf[base+24:base+32], v.FilterInfo)
	}
	off += len(h.Vectors) * vectorInfoSize
	copy(buf[off:], nameTable)

	if _, err := w.WriteAt(buf, 0); err != nil {
		return 0, xerrors.Wrap(xerrors.KindIO, "writing container header", err)
	}
	return headerSize, nil
}

// Decode reads and validates a container header starting at offset 0.
func Decode(r ioutil.ReaderAt) (*Header, error) {
	prefix, err := ioutil.ReadFull(r, 0, 16)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading container prefix", err)
	}
	order := leByteOrder{}
	magic := order.Uint64(prefix[0:8])
	headerSize := order.Uint32(prefix[8:12])
	version := order.Uint32(prefix[12:16])

	var inProgress bool
	switch magic {
	case MagicFinal:
		inProgress = false
	case MagicInProgress:
		inProgress = true
	default:
		return nil, xerrors.New(xerrors.KindFormat, "bad container magic")
	}
	if version != Version1 && version != Version2 {
		return nil, xerrors.New(xerrors.KindFormat, "unsupported container version")
	}
	if inProgress {
		return nil, xerrors.New(xerrors.KindFormat, "container file is marked in-progress and must not be read")
	}

	buf, err := ioutil.ReadFull(r, 0, int(headerSize))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading container header", err)
	}

	h := &Header{Version: version, InProgress: inProgress}
	off := 16
	h.BfKind = BfKind(order.Uint32(buf[off : off+4]))
	off += 4
	padding1 := order.Uint32(buf[off : off+4])
	off += 4
	if padding1 != 0 {
		return nil, xerrors.New(xerrors.KindFormat, "container header padding1 must be zero")
	}
	h.SmerSize = order.Uint32(buf[off : off+4])
	off += 4
	h.NumHashes = order.Uint32(buf[off : off+4])
	off += 4
	h.HashSeed1 = order.Uint64(buf[off : off+8])
	off += 8
	h.HashSeed2 = order.Uint64(buf[off : off+8])
	off += 8
	h.HashModulus = order.Uint64(buf[off : off+8])
	off += 8
	h.NumBits = order.Uint64(buf[off : off+8])
	off += 8
	numVectors := order.Uint32(buf[off : off+4])
	off += 4
	if version != Version1 {
		h.SetSizeKnown = order.Uint32(buf[off:off+4]) != 0
		off += 4
		h.SetSize = order.Uint64(buf[off : off+8])
		off += 8
	}

	h.Vectors = make([]VectorInfo, numVectors)
	for i := range h.Vectors {
		base := off + i*vectorInfoSize
		if base+vectorInfoSize > len(buf) {
			return nil, xerrors.New(xerrors.KindFormat, "container header truncated in vectorinfo array")
		}
		v := VectorInfo{
			Compressor: order.Uint32(buf[base : base+4]),
			Offset:     order.Uint64(buf[base+8 : base+16]),
			NumBytes:   order.Uint64(buf[base+16 : base+24]),
			FilterInfo: order.Uint64(buf[base+24 : base+32]),
		}
		if v.NumBytes > maxVectorBytes {
			return nil, xerrors.New(xerrors.KindFormat, "container vector exceeds sanity size limit")
		}
		nameOffset := order.Uint32(buf[base+4 : base+8])
		if nameOffset != 0 {
			if int(nameOffset) >= len(buf) {
				return nil, xerrors.New(xerrors.KindFormat, "container vector name offset out of range")
			}
			v.Name = readCString(buf[nameOffset:])
		}
		h.Vectors[i] = v
	}

	return h, nil
}

func readCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func pickMagic(inProgress bool) uint64 {
	if inProgress {
		return MagicInProgress
	}
	return MagicFinal
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// leByteOrder is a tiny little-endian codec kept local to this package so
// header encode/decode doesn't need to pull in ioutil's ReaderAt-oriented
// helpers for plain byte-slice access.
type leByteOrder struct{}

func (leByteOrder) Uint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func (leByteOrder) Uint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
func (leByteOrder) PutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func (leByteOrder) PutUint64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}
