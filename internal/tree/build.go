package tree

import (
	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Compression selects the on-disk representation every finalized vector
// is converted to before saving, matching the build CLI's
// --uncompressed|--rrr|--roar flag (spec.md §6).
type Compression uint8

const (
	CompressNone Compression = iota
	CompressRRR
	CompressRoaring
)

func (c Compression) fileTag() string {
	switch c {
	case CompressRRR:
		return "rrr"
	case CompressRoaring:
		return "roar"
	default:
		return "uncompressed"
	}
}

// Builder drives the post-order construction of one tree into a target
// filter kind (spec.md §4.3).
type Builder struct {
	Kind     bloom.Kind
	Cfg      *config.Config
	FM       *fileio.FileManager
	Compress Compression
}

// Build transforms root (and every descendant) in place into Builder's
// target kind, saving every finalized node to a ".<kind>.<compressor>.bf"
// file derived from its own name. A dummy forest root is handled by
// building each real root independently.
func (b *Builder) Build(root *Node) error {
	if root.Dummy {
		for _, c := range root.Children {
			if err := b.buildNode(c, true); err != nil {
				return err
			}
		}
		return nil
	}
	return b.buildNode(root, true)
}

func (b *Builder) buildNode(n *Node, isRoot bool) error {
	if n.IsLeaf() {
		return b.buildLeaf(n)
	}
	for _, c := range n.Children {
		if err := b.buildNode(c, false); err != nil {
			return err
		}
	}

	if err := b.fold(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := b.finalizeChild(c, n); err != nil {
			return err
		}
		if err := b.materialize(c); err != nil {
			return err
		}
	}
	if isRoot {
		if err := b.finalizeRoot(n); err != nil {
			return err
		}
		if err := b.materialize(n); err != nil {
			return err
		}
	}
	return nil
}

// buildLeaf reads the leaf's input simple Bloom filter and promotes it
// into the target kind's leaf form (spec.md §4.3).
func (b *Builder) buildLeaf(n *Node) error {
	input, err := LoadFilter(b.FM, n.Filename, n.FilterIndex, b.Cfg)
	if err != nil {
		return err
	}
	if input.Kind != bloom.KindSimple {
		return xerrors.New(xerrors.KindConsistency, "leaf input filter is not a simple filter: "+n.Name)
	}
	if err := input.Decompress(); err != nil {
		return err
	}

	out := &bloom.Filter{Kind: b.Kind, NumBits: input.NumBits}
	out.CopyProperties(input)
	out.Vectors = make([]bitvector.Vector, bloom.VectorsPerKind(b.Kind))

	switch b.Kind {
	case bloom.KindSimple:
		out.Vectors[bloom.VecB] = input.Vectors[0]
	case bloom.KindAllSome:
		out.Vectors[bloom.VecBAll] = input.Vectors[0]
		out.Vectors[bloom.VecBSome] = bitvector.New(input.NumBits)
	case bloom.KindDetermined, bloom.KindDeterminedBrief:
		out.Vectors[bloom.VecBDet] = onesVector(input.NumBits)
		out.Vectors[bloom.VecBHow] = input.Vectors[0]
	default:
		return xerrors.New(xerrors.KindUnsupported, "unknown target filter kind")
	}
	n.Filter = out
	return nil
}

// fold computes n's own vectors from its (not yet finalized) children,
// per the per-kind recurrence (spec.md §4.3).
func (b *Builder) fold(n *Node) error {
	numBits := n.Children[0].Filter.NumBits
	for _, c := range n.Children {
		if c.Filter.NumBits != numBits {
			return xerrors.New(xerrors.KindConsistency, "sibling filters disagree on numBits")
		}
		if err := c.Filter.Decompress(); err != nil {
			return err
		}
	}

	out := &bloom.Filter{Kind: b.Kind, NumBits: numBits}
	out.CopyProperties(n.Children[0].Filter)
	out.Vectors = make([]bitvector.Vector, bloom.VectorsPerKind(b.Kind))

	switch b.Kind {
	case bloom.KindSimple:
		acc := bitvector.New(numBits)
		for _, c := range n.Children {
			cv, err := asPlain(c.Filter.Vectors[bloom.VecB])
			if err != nil {
				return err
			}
			if err := bitvector.ApplyInPlace(acc, cv, bitvector.OpOr); err != nil {
				return err
			}
		}
		out.Vectors[bloom.VecB] = acc

	case bloom.KindAllSome:
		bcap := onesVector(numBits)
		bcup := bitvector.New(numBits)
		for _, c := range n.Children {
			all, err := asPlain(c.Filter.Vectors[bloom.VecBAll])
			if err != nil {
				return err
			}
			some, err := asPlain(c.Filter.Vectors[bloom.VecBSome])
			if err != nil {
				return err
			}
			if err := bitvector.ApplyInPlace(bcap, all, bitvector.OpAnd); err != nil {
				return err
			}
			allOrSome := all.Clone()
			if err := bitvector.ApplyInPlace(allOrSome, some, bitvector.OpOr); err != nil {
				return err
			}
			if err := bitvector.ApplyInPlace(bcup, allOrSome, bitvector.OpOr); err != nil {
				return err
			}
		}
		bsome := bcup.Clone()
		if err := bitvector.ApplyInPlace(bsome, bcap, bitvector.OpAndNot); err != nil {
			return err
		}
		out.Vectors[bloom.VecBAll] = bcap
		out.Vectors[bloom.VecBSome] = bsome

	case bloom.KindDetermined, bloom.KindDeterminedBrief:
		bcap := onesVector(numBits)
		z := onesVector(numBits)
		for _, c := range n.Children {
			det, err := asPlain(c.Filter.Vectors[bloom.VecBDet])
			if err != nil {
				return err
			}
			how, err := asPlain(c.Filter.Vectors[bloom.VecBHow])
			if err != nil {
				return err
			}
			if err := bitvector.ApplyInPlace(bcap, how, bitvector.OpAnd); err != nil {
				return err
			}
			detAndNotHow := det.Clone()
			if err := bitvector.ApplyInPlace(detAndNotHow, how, bitvector.OpAndNot); err != nil {
				return err
			}
			if err := bitvector.ApplyInPlace(z, detAndNotHow, bitvector.OpAnd); err != nil {
				return err
			}
		}
		bdet := bcap.Clone()
		if err := bitvector.ApplyInPlace(bdet, z, bitvector.OpOr); err != nil {
			return err
		}
		out.Vectors[bloom.VecBHow] = bcap
		out.Vectors[bloom.VecBDet] = bdet

	default:
		return xerrors.New(xerrors.KindUnsupported, "unknown target filter kind")
	}

	n.Filter = out
	return nil
}

// finalizeChild mutates c's freshly-folded (or leaf) filter against its
// parent x's freshly-folded filter, per the per-kind child-finalization
// rule (spec.md §4.3).
func (b *Builder) finalizeChild(c, x *Node) error {
	switch b.Kind {
	case bloom.KindSimple:
		return nil

	case bloom.KindAllSome:
		cAll, err := asPlain(c.Filter.Vectors[bloom.VecBAll])
		if err != nil {
			return err
		}
		xAll, err := asPlain(x.Filter.Vectors[bloom.VecBAll])
		if err != nil {
			return err
		}
		return bitvector.ApplyInPlace(cAll, xAll, bitvector.OpAndNot)

	case bloom.KindDetermined, bloom.KindDeterminedBrief:
		cDet, err := asPlain(c.Filter.Vectors[bloom.VecBDet])
		if err != nil {
			return err
		}
		xDet, err := asPlain(x.Filter.Vectors[bloom.VecBDet])
		if err != nil {
			return err
		}
		if err := bitvector.ApplyInPlace(cDet, xDet, bitvector.OpAndNot); err != nil {
			return err
		}
		cHow, err := asPlain(c.Filter.Vectors[bloom.VecBHow])
		if err != nil {
			return err
		}
		if err := bitvector.ApplyInPlace(cHow, cDet, bitvector.OpAnd); err != nil {
			return err
		}
		if b.Kind == bloom.KindDeterminedBrief {
			return b.squeezeChild(c, x)
		}
		return nil

	default:
		return xerrors.New(xerrors.KindUnsupported, "unknown target filter kind")
	}
}

// squeezeChild applies DeterminedBrief's post-finalization squeeze step
// (spec.md §4.3): I_det(c) = NOT B_det(x); I_how(c) = B_det(c) AND
// I_det(c); then B_det(c) and B_how(c) are each squeezed by their own
// selector.
func (b *Builder) squeezeChild(c, x *Node) error {
	xDet, err := asPlain(x.Filter.Vectors[bloom.VecBDet])
	if err != nil {
		return err
	}
	iDet := xDet.Clone()
	iDet.Complement()

	cDet, err := asPlain(c.Filter.Vectors[bloom.VecBDet])
	if err != nil {
		return err
	}
	iHow := cDet.Clone()
	if err := bitvector.ApplyInPlace(iHow, iDet, bitvector.OpAnd); err != nil {
		return err
	}

	if err := c.Filter.SqueezeBy(iHow, bloom.VecBHow); err != nil {
		return err
	}
	if err := c.Filter.SqueezeBy(iDet, bloom.VecBDet); err != nil {
		return err
	}
	c.Filter.Squeezed = true
	return nil
}

// finalizeRoot applies the per-kind root finalization step (spec.md
// §4.3). Simple and AllSome have none.
func (b *Builder) finalizeRoot(n *Node) error {
	switch b.Kind {
	case bloom.KindSimple, bloom.KindAllSome:
		return nil
	case bloom.KindDetermined:
		how, err := asPlain(n.Filter.Vectors[bloom.VecBHow])
		if err != nil {
			return err
		}
		det, err := asPlain(n.Filter.Vectors[bloom.VecBDet])
		if err != nil {
			return err
		}
		return bitvector.ApplyInPlace(how, det, bitvector.OpAnd)
	case bloom.KindDeterminedBrief:
		det, err := asPlain(n.Filter.Vectors[bloom.VecBDet])
		if err != nil {
			return err
		}
		if err := n.Filter.SqueezeBy(det, bloom.VecBHow); err != nil {
			return err
		}
		n.Filter.Squeezed = true
		return nil
	default:
		return xerrors.New(xerrors.KindUnsupported, "unknown target filter kind")
	}
}

// materialize simplifies, compresses, saves, and unloads a finalized node.
func (b *Builder) materialize(n *Node) error {
	if b.Cfg.Simplify {
		for which := range n.Filter.Vectors {
			n.Filter.Simplify(which, true)
		}
	}
	if err := b.compress(n.Filter); err != nil {
		return err
	}
	n.Filename = DerivedFilename(n, b.Kind, b.Compress.fileTag())
	if err := SaveFilter(b.FM, n.Filename, n.Filter, b.Cfg); err != nil {
		return err
	}
	b.FM.Register(n.Filename, fmNode{n})
	n.Unloadable = true
	n.Unload()
	return nil
}

// compress converts every still-Plain vector of f to the Builder's target
// on-disk representation. AllZeros/AllOnes vectors (from simplification)
// are left alone since they already have a degenerate, maximally compact
// form.
func (b *Builder) compress(f *bloom.Filter) error {
	if b.Compress == CompressNone {
		return nil
	}
	for i, v := range f.Vectors {
		p, ok := v.(*bitvector.Plain)
		if !ok {
			continue
		}
		switch b.Compress {
		case CompressRRR:
			f.Vectors[i] = bitvector.NewRrrFromPlain(p, b.Cfg.RRRBlockSize, b.Cfg.RRRRankSamplePeriod)
		case CompressRoaring:
			r, err := bitvector.NewRoaringFromPlain(p)
			if err != nil {
				return err
			}
			f.Vectors[i] = r
		}
	}
	return nil
}

// asPlain asserts that v has already been decompressed to its in-memory
// plain form; every caller runs after the fold/finalize step that
// guarantees this, so the error path is an internal-invariant guard rather
// than a condition expected on valid input.
func asPlain(v bitvector.Vector) (*bitvector.Plain, error) {
	p, ok := v.(*bitvector.Plain)
	if !ok {
		return nil, xerrors.New(xerrors.KindInvalid, "tree: vector not decompressed before fold")
	}
	return p, nil
}

func onesVector(numBits uint64) *bitvector.Plain {
	p := bitvector.New(numBits)
	p.Fill(true)
	return p
}
