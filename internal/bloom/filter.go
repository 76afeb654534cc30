// Package bloom implements the four Bloom-filter "kinds" the engine builds
// trees out of: Simple, AllSome, Determined, and DeterminedBrief. Each is a
// fixed bundle of one or two bit vectors sharing a common length and hash
// parameters; the differences between kinds are entirely in how lookup and
// the tree-construction recurrences interpret those vectors (spec.md §4.2).
package bloom

import (
	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/hashfn"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Kind tags which of the four vector bundles a Filter holds.
type Kind uint8

const (
	KindSimple Kind = iota
	KindAllSome
	KindDetermined
	KindDeterminedBrief
)

// String names a Kind for diagnostics and on-disk filenames.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindAllSome:
		return "allsome"
	case KindDetermined:
		return "determined"
	case KindDeterminedBrief:
		return "determined,brief"
	default:
		return "unknown"
	}
}

// VectorsPerKind is the number of bit vectors a Filter of this kind holds.
func VectorsPerKind(k Kind) int {
	if k == KindSimple {
		return 1
	}
	return 2
}

// Lookup is the three-valued result of resolving a hashed position against
// a filter.
type Lookup uint8

const (
	LookupAbsent Lookup = iota
	LookupPresent
	LookupUnresolved
)

// Vector bundle indices, named for readability at call sites. Simple uses
// only index 0 (B). AllSome uses B_all/B_some. Determined and
// DeterminedBrief use B_det/B_how.
const (
	VecB       = 0
	VecBAll    = 0
	VecBSome   = 1
	VecBDet    = 0
	VecBHow    = 1
)

// Filter is one Bloom filter: its bit-vector bundle plus the hash
// parameters every vector in the bundle shares (spec.md §3).
type Filter struct {
	Kind Kind

	NumBits uint64

	SmerSize    uint32
	NumHashes   uint32
	HashSeed1   uint64
	HashSeed2   uint64
	HashModulus uint64

	SetSizeKnown bool
	SetSize      uint64

	// Squeezed is meaningful only for a DeterminedBrief filter's B_how,
	// mirrored in the container file's per-vector filterInfo field
	// (spec.md §6).
	Squeezed bool

	Vectors []bitvector.Vector
}

// New allocates a fresh, all-zero filter of the given kind and length.
func New(kind Kind, numBits uint64) *Filter {
	n := VectorsPerKind(kind)
	vectors := make([]bitvector.Vector, n)
	for i := range vectors {
		vectors[i] = bitvector.New(numBits)
	}
	return &Filter{Kind: kind, NumBits: numBits, Vectors: vectors}
}

// CopyProperties copies other's hash parameters (but not its vectors) onto
// f, matching the source's copy_properties operation.
func (f *Filter) CopyProperties(other *Filter) {
	f.SmerSize = other.SmerSize
	f.NumHashes = other.NumHashes
	f.HashSeed1 = other.HashSeed1
	f.HashSeed2 = other.HashSeed2
	f.HashModulus = other.HashModulus
	f.SetSizeKnown = other.SetSizeKnown
	f.SetSize = other.SetSize
}

// Properties is the comparable subset of a Filter's hash parameters a
// consistency check compares across leaves (spec.md §7, the
// --consistencycheck-equivalent bulk pass).
type Properties struct {
	SmerSize    uint32
	NumHashes   uint32
	HashSeed1   uint64
	HashSeed2   uint64
	HashModulus uint64
	NumBits     uint64
}

// CloneProperties extracts f's comparable hash parameters.
func (f *Filter) CloneProperties() Properties {
	return Properties{
		SmerSize:    f.SmerSize,
		NumHashes:   f.NumHashes,
		HashSeed1:   f.HashSeed1,
		HashSeed2:   f.HashSeed2,
		HashModulus: f.HashModulus,
		NumBits:     f.NumBits,
	}
}

// StealBits transfers other's vector bundle into f and leaves other empty,
// matching the source's steal_bits operation (an ownership transfer, not a
// copy).
func (f *Filter) StealBits(other *Filter) {
	f.Vectors = other.Vectors
	f.NumBits = other.NumBits
	other.Vectors = nil
}

// Decompress replaces every vector in the bundle with its decompressed
// Plain form in place, needed before a node's output filter can serve as
// an input to the next fold step (spec.md §4.3: "children's output
// filters ... must be in plain form at this point").
func (f *Filter) Decompress() error {
	for i := range f.Vectors {
		if _, err := f.ensurePlain(i); err != nil {
			return err
		}
	}
	return nil
}

// ensurePlain decompresses Vectors[which] to a *Plain if it isn't already
// one, caching the result back into the bundle so repeated mutation
// doesn't repeatedly decompress.
func (f *Filter) ensurePlain(which int) (*bitvector.Plain, error) {
	if which < 0 || which >= len(f.Vectors) {
		return nil, xerrors.New(xerrors.KindInvalid, "vector index out of range")
	}
	if p, ok := f.Vectors[which].(*bitvector.Plain); ok {
		return p, nil
	}
	p, err := f.Vectors[which].AsPlain()
	if err != nil {
		return nil, err
	}
	f.Vectors[which] = p
	return p, nil
}

func otherPlain(other *Filter, which int) (*bitvector.Plain, error) {
	return other.ensurePlain(which)
}

// UnionWith computes Vectors[which] |= other.Vectors[which].
func (f *Filter) UnionWith(other *Filter, which int) error {
	return f.applyBinOp(other, which, bitvector.OpOr)
}

// IntersectWith computes Vectors[which] &= other.Vectors[which].
func (f *Filter) IntersectWith(other *Filter, which int) error {
	return f.applyBinOp(other, which, bitvector.OpAnd)
}

// IntersectWithComplement computes Vectors[which] &= NOT other.Vectors[which].
func (f *Filter) IntersectWithComplement(other *Filter, which int) error {
	return f.applyBinOp(other, which, bitvector.OpAndNot)
}

// MaskWith is IntersectWithComplement under its conventional construction-
// recurrence name ("A AND NOT B", spec.md §4.2).
func (f *Filter) MaskWith(other *Filter, which int) error {
	return f.IntersectWithComplement(other, which)
}

func (f *Filter) applyBinOp(other *Filter, which int, op bitvector.BinOp) error {
	dst, err := f.ensurePlain(which)
	if err != nil {
		return err
	}
	src, err := otherPlain(other, which)
	if err != nil {
		return err
	}
	return bitvector.ApplyInPlace(dst, src, op)
}

// SqueezeBy replaces Vectors[which] with its squeezed form relative to
// selector (spec.md §4.3's DeterminedBrief finalization step).
func (f *Filter) SqueezeBy(selector bitvector.Vector, which int) error {
	src, err := f.ensurePlain(which)
	if err != nil {
		return err
	}
	selPlain, err := selector.AsPlain()
	if err != nil {
		return err
	}
	squeezed, err := bitvector.Squeeze(src, selPlain)
	if err != nil {
		return err
	}
	f.Vectors[which] = squeezed
	return nil
}

// Simplify replaces Vectors[which] with AllZeros/AllOnes if it qualifies,
// unless disabled by configuration (spec.md §4.3: "disabled by a
// configuration flag").
func (f *Filter) Simplify(which int, enabled bool) {
	if !enabled {
		return
	}
	v := f.Vectors[which]
	switch {
	case v.IsAllZeros():
		f.Vectors[which] = bitvector.NewAllZeros(v.Len())
	case v.IsAllOnes():
		f.Vectors[which] = bitvector.NewAllOnes(v.Len())
	}
}

// Add inserts smer by setting the bit(s) its hash(es) select, always into
// vector 0 regardless of NumHashes (spec.md §4.2: "the code supports
// multi-hash, but it writes all hashes into vector 0").
func (f *Filter) Add(h hashfn.Hasher, smer []byte) error {
	plain, err := f.ensurePlain(0)
	if err != nil {
		return err
	}
	numHashes := f.NumHashes
	if numHashes == 0 {
		numHashes = 1
	}
	for i := uint32(0); i < numHashes; i++ {
		seed := f.HashSeed1 + uint64(i)*f.HashSeed2
		p := hashfn.Position(h, smer, seed, f.HashModulus)
		if p < f.NumBits {
			if err := plain.SetBit(p, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Contains reports whether smer's primary hash position resolves to
// anything but Absent — at a leaf, Unresolved is treated as Present
// (spec.md §4.2).
func (f *Filter) Contains(h hashfn.Hasher, smer []byte) (bool, error) {
	p := hashfn.Position(h, smer, f.HashSeed1, f.HashModulus)
	lk, err := f.Lookup(p)
	if err != nil {
		return false, err
	}
	return lk != LookupAbsent, nil
}

// Lookup resolves a hashed position p against the filter per its kind's
// rule (spec.md §4.2).
func (f *Filter) Lookup(p uint64) (Lookup, error) {
	switch f.Kind {
	case KindSimple:
		bit, err := f.Vectors[VecB].Bit(p)
		if err != nil {
			return 0, err
		}
		if !bit {
			return LookupAbsent, nil
		}
		return LookupUnresolved, nil

	case KindAllSome:
		all, err := f.Vectors[VecBAll].Bit(p)
		if err != nil {
			return 0, err
		}
		if all {
			return LookupPresent, nil
		}
		some, err := f.Vectors[VecBSome].Bit(p)
		if err != nil {
			return 0, err
		}
		if !some {
			return LookupAbsent, nil
		}
		return LookupUnresolved, nil

	case KindDetermined:
		det, err := f.Vectors[VecBDet].Bit(p)
		if err != nil {
			return 0, err
		}
		if !det {
			return LookupUnresolved, nil
		}
		how, err := f.Vectors[VecBHow].Bit(p)
		if err != nil {
			return 0, err
		}
		if how {
			return LookupPresent, nil
		}
		return LookupAbsent, nil

	case KindDeterminedBrief:
		det, err := f.Vectors[VecBDet].Bit(p)
		if err != nil {
			return 0, err
		}
		if !det {
			return LookupUnresolved, nil
		}
		q, err := f.Vectors[VecBDet].Rank1(p)
		if err != nil {
			return 0, err
		}
		how, err := f.Vectors[VecBHow].Bit(q)
		if err != nil {
			return 0, err
		}
		if how {
			return LookupPresent, nil
		}
		return LookupAbsent, nil

	default:
		return 0, xerrors.New(xerrors.KindUnsupported, "unknown filter kind")
	}
}

// DetRank0 is the query traversal's descent transform for a
// DeterminedBrief node: p - rank1_{B_det}(p), equivalently rank0_n(p)
// (spec.md §4.2's position-adjustment contract). Valid only for
// DeterminedBrief filters.
func (f *Filter) DetRank0(p uint64) (uint64, error) {
	r1, err := f.Vectors[VecBDet].Rank1(p)
	if err != nil {
		return 0, err
	}
	return p - r1, nil
}

// DetSelect0 is the inverse ascent transform: the original pre-squeeze
// coordinate for squeezed position p.
func (f *Filter) DetSelect0(p uint64) (uint64, error) {
	return f.Vectors[VecBDet].Select0(p)
}
