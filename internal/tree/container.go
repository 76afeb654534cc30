package tree

import (
	"github.com/howdesbt/howdesbt/internal/bitvector"
	"github.com/howdesbt/howdesbt/internal/bloom"
	"github.com/howdesbt/howdesbt/internal/config"
	"github.com/howdesbt/howdesbt/internal/fileio"
	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// bfKindFor/bloomKindFor translate between the container format's BfKind
// tag and the in-memory bloom.Kind.
func bfKindFor(k bloom.Kind) fileio.BfKind {
	switch k {
	case bloom.KindSimple:
		return fileio.BfKindSimple
	case bloom.KindAllSome:
		return fileio.BfKindAllSome
	case bloom.KindDetermined:
		return fileio.BfKindDetermined
	case bloom.KindDeterminedBrief:
		return fileio.BfKindDeterminedBrief
	default:
		return 0
	}
}

func bloomKindFor(k fileio.BfKind) (bloom.Kind, error) {
	switch k {
	case fileio.BfKindSimple:
		return bloom.KindSimple, nil
	case fileio.BfKindAllSome:
		return bloom.KindAllSome, nil
	case fileio.BfKindDetermined:
		return bloom.KindDetermined, nil
	case fileio.BfKindDeterminedBrief:
		return bloom.KindDeterminedBrief, nil
	default:
		return 0, xerrors.New(xerrors.KindFormat, "unsupported or unknown bfKind in container header")
	}
}

// vectorName names a filter's vectors for the container's name table.
func vectorName(k bloom.Kind, which int) string {
	switch k {
	case bloom.KindSimple:
		return "B"
	case bloom.KindAllSome:
		if which == bloom.VecBAll {
			return "B_all"
		}
		return "B_some"
	default:
		if which == bloom.VecBDet {
			return "B_det"
		}
		return "B_how"
	}
}

// filterInfoFor computes the container's kind-specific filterInfo field
// (spec.md §6): for DeterminedBrief's B_how, {0=Squeezed, 1=NotSqueezed}.
func filterInfoFor(f *bloom.Filter, which int) uint64 {
	if f.Kind == bloom.KindDeterminedBrief && which == bloom.VecBHow {
		if f.Squeezed {
			return 0
		}
		return 1
	}
	return 0
}

// SaveFilter writes f to filename as a container file holding exactly one
// filter (spec.md §6), using cfg's RRR parameters for every vector saved in
// RRR form. It never appends to an existing container, so every file this
// package writes has exactly one filter at index 0; LoadFilter's
// filterIndex selection exists to correctly read containers shaped by the
// NAME[FILENAME] shared-file topology syntax, not ones this package
// produces itself (see DESIGN.md). The header is
// written twice: first with the in-progress magic and placeholder vector
// offsets, before any vector body exists; then, once every vector body is on
// disk, with the final magic and real offsets. A crash between these two
// writes leaves a file a reader will refuse to open rather than one with
// bogus offsets under a finalized magic.
func SaveFilter(fm *fileio.FileManager, filename string, f *bloom.Filter, cfg *config.Config) error {
	file, err := fm.OpenForWrite(filename)
	if err != nil {
		return err
	}

	placeholder := &fileio.Header{
		Version:      fileio.Version2,
		InProgress:   true,
		BfKind:       bfKindFor(f.Kind),
		SmerSize:     f.SmerSize,
		NumHashes:    f.NumHashes,
		HashSeed1:    f.HashSeed1,
		HashSeed2:    f.HashSeed2,
		HashModulus:  f.HashModulus,
		NumBits:      f.NumBits,
		SetSizeKnown: f.SetSizeKnown,
		SetSize:      f.SetSize,
	}
	placeholder.Vectors = make([]fileio.VectorInfo, len(f.Vectors))
	for i := range f.Vectors {
		placeholder.Vectors[i] = fileio.VectorInfo{Name: vectorName(f.Kind, i)}
	}
	headerSize, err := placeholder.Encode(file)
	if err != nil {
		return err
	}

	offset := int64(headerSize)
	vectors := make([]fileio.VectorInfo, len(f.Vectors))
	for i, v := range f.Vectors {
		info, err := fileio.SaveVector(file, offset, v, cfg.RRRBlockSize, cfg.RRRRankSamplePeriod)
		if err != nil {
			return err
		}
		info.Name = vectorName(f.Kind, i)
		info.FilterInfo = filterInfoFor(f, i)
		vectors[i] = info
		offset += int64(info.NumBytes)
	}

	final := *placeholder
	final.InProgress = false
	final.Vectors = vectors
	if _, err := final.Encode(file); err != nil {
		return err
	}
	return nil
}

// LoadFilter reads filename's container header and the filterIndex-th
// filter's worth of vectors it describes, returning a fully-populated,
// plain-form-on-demand filter. A container may hold several filters back to
// back behind one shared header (spec.md §1, §3: the file manager maps a
// filename to a list of node names; §6: "number of filters equals
// numVectors / vectorsPerFilter(bfKind)"); filterIndex selects which
// consecutive run of bloom.VectorsPerKind(kind) vectors belongs to the
// caller's node. Pass 0 for the overwhelmingly common one-filter-per-file
// case.
func LoadFilter(fm *fileio.FileManager, filename string, filterIndex int, cfg *config.Config) (*bloom.Filter, error) {
	file, err := fm.Open(filename)
	if err != nil {
		return nil, err
	}
	header, err := fileio.Decode(file)
	if err != nil {
		return nil, err
	}
	kind, err := bloomKindFor(header.BfKind)
	if err != nil {
		return nil, err
	}

	perFilter := bloom.VectorsPerKind(kind)
	if perFilter <= 0 || len(header.Vectors)%perFilter != 0 {
		return nil, xerrors.New(xerrors.KindFormat, "container vector count is not a multiple of vectorsPerFilter for its bfKind")
	}
	numFilters := len(header.Vectors) / perFilter
	if filterIndex < 0 || filterIndex >= numFilters {
		return nil, xerrors.New(xerrors.KindInvalid, "filter index out of range for container")
	}
	start := filterIndex * perFilter
	vectorInfos := header.Vectors[start : start+perFilter]

	f := &bloom.Filter{
		Kind:         kind,
		NumBits:      header.NumBits,
		SmerSize:     header.SmerSize,
		NumHashes:    header.NumHashes,
		HashSeed1:    header.HashSeed1,
		HashSeed2:    header.HashSeed2,
		HashModulus:  header.HashModulus,
		SetSizeKnown: header.SetSizeKnown,
		SetSize:      header.SetSize,
	}
	f.Vectors = make([]bitvector.Vector, perFilter)
	for j, vi := range vectorInfos {
		v, err := fileio.LoadVector(file, vi, cfg.RRRBlockSize, cfg.RRRRankSamplePeriod)
		if err != nil {
			return nil, err
		}
		f.Vectors[j] = v
		if kind == bloom.KindDeterminedBrief && j == bloom.VecBHow {
			f.Squeezed = vi.FilterInfo == 0
		}
	}
	return f, nil
}
