// Package hashfn provides the hash(smer) -> uint64 function the core
// treats as an opaque, pluggable collaborator (spec.md §1, "the k-mer
// hashing used to insert s-mers into leaf filters is treated as an opaque
// function"). Nothing in internal/bitvector, internal/bloom, internal/tree,
// internal/cluster, or internal/query depends on a specific hash
// implementation; they depend only on the Hasher interface.
package hashfn

import "github.com/cespare/xxhash/v2"

// Hasher computes a 64-bit digest of an s-mer under one of a filter's two
// seeds (spec.md §3: "two 64-bit seeds"). Determinism across calls with the
// same (smer, seed) pair is the only contract the core relies on.
type Hasher interface {
	Hash(smer []byte, seed uint64) uint64
}

// XXHash is the default Hasher, built on xxhash64. The seed is folded in by
// hashing an 8-byte little-endian encoding of it ahead of the s-mer bytes,
// so two distinct seeds over the same s-mer produce independent digests.
type XXHash struct{}

// Hash implements Hasher.
func (XXHash) Hash(smer []byte, seed uint64) uint64 {
	d := xxhash.New()
	var seedBytes [8]byte
	putUint64LE(seedBytes[:], seed)
	_, _ = d.Write(seedBytes[:])
	_, _ = d.Write(smer)
	return d.Sum64()
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// Position computes hash(s) mod modulus, the coordinate every filter kind's
// add/contains/lookup operates on (spec.md §4.2).
func Position(h Hasher, smer []byte, seed, modulus uint64) uint64 {
	if modulus == 0 {
		return 0
	}
	return h.Hash(smer, seed) % modulus
}
