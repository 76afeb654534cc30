// Package bitvector implements the five bit-vector variants the rest of the
// engine is built on: a mutable Plain array, two read-mostly compressed
// caches (Rrr, Roaring), and two degenerate constant forms (AllZeros,
// AllOnes). At any moment a vector holds exactly one of these
// representations — never a plain buffer and a compressed form at once.
//
// Variants that require a plain buffer to answer a query (bulk bitwise ops,
// mutation) decompress on demand rather than silently caching both forms;
// callers that want to avoid repeated decompression should keep the
// returned Plain around themselves.
package bitvector

import (
	"io"

	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Kind tags which of the five on-disk/in-memory representations a Vector
// currently holds.
type Kind uint8

const (
	KindPlain Kind = iota
	KindRrr
	KindRoaring
	KindAllZeros
	KindAllOnes
)

// String renders a Kind for diagnostics and container-file compressor bytes.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindRrr:
		return "rrr"
	case KindRoaring:
		return "roaring"
	case KindAllZeros:
		return "allzeros"
	case KindAllOnes:
		return "allones"
	default:
		return "unknown"
	}
}

// Vector is the common surface every variant implements: length, point
// queries, rank/select, and save. Bulk bitwise operations live outside this
// interface since they are defined over Plain (decompress-on-demand at the
// call site, per package doc).
type Vector interface {
	Kind() Kind
	Len() uint64
	Bit(pos uint64) (bool, error)
	Rank1(pos uint64) (uint64, error)
	Select0(i uint64) (uint64, error)
	IsAllZeros() bool
	IsAllOnes() bool
	Popcount() uint64
	// AsPlain returns a decompressed, independently-owned Plain copy. For
	// Plain itself this still copies, so mutating the result never
	// aliases the receiver.
	AsPlain() (*Plain, error)
	// SaveTo writes this vector's on-disk vector body (not the container
	// header) starting at offset, and returns the number of bytes
	// written.
	SaveTo(w io.WriterAt, offset int64) (int64, error)
}

// errWriteProtected is returned by any mutator called on a variant that
// isn't a freshly-decompressed Plain.
func errWriteProtected(op string) error {
	return xerrors.New(xerrors.KindUnsupported, "write-protected vector: "+op)
}

// errLengthMismatch is returned when a bulk operation's operands disagree
// in length in a way the defined zero-fill semantics can't resolve (spec
// Open Questions (a), (b): unequal-length in-place/complement ops are
// errors, not padded).
func errLengthMismatch(op string) error {
	return xerrors.New(xerrors.KindUnsupported, "length mismatch: "+op)
}
