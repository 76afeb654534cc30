package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// sequence is one named nucleotide sequence read from a query file.
type sequence struct {
	name string
	data []byte
}

// readSequences accepts either FASTA (header lines starting with '>',
// sequence data possibly split across multiple lines) or one bare sequence
// per line, mirroring the two formats the original tool's query reader
// accepts. Sequences without an explicit name are named from the file's
// base name plus their line number.
func readSequences(path string) ([]sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "opening query file", err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" {
		base = "query"
	}

	var out []sequence
	var cur *sequence
	lineNum := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line[0] == '>' {
			if cur != nil {
				out = append(out, *cur)
			}
			name := strings.TrimSpace(line[1:])
			if name == "" {
				name = fmt.Sprintf("%s_%d", base, lineNum)
			}
			cur = &sequence{name: name}
			continue
		}
		if cur == nil {
			// One-sequence-per-line format: no header seen yet.
			out = append(out, sequence{name: fmt.Sprintf("%s_%d", base, lineNum), data: []byte(line)})
			continue
		}
		cur.data = append(cur.data, []byte(line)...)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading query file", err)
	}
	return out, nil
}
