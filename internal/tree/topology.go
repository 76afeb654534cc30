package tree

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// ParseTopology reads a depth-marked pre-order topology file (spec.md §4.6)
// and returns its root. If the file lists more than one depth-0 entry, the
// returned root is a Dummy forest root; a single depth-0 entry collapses
// directly into the returned (non-dummy) root. Nodes that name the same
// Filename (the "NAME[FILENAME]" shared-container syntax) are assigned
// increasing FilterIndex values in the order they appear, so each picks a
// distinct filter out of that file's vector runs.
func ParseTopology(r io.Reader, baseDir string) (*Node, error) {
	dummy := &Node{Dummy: true}
	stack := []*Node{dummy}
	names := make(map[string]bool)
	filterIndex := make(map[string]int)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		depth, body := splitDepth(raw)
		if depth > len(stack)-1 {
			return nil, xerrors.New(xerrors.KindStructure, "topology depth jump greater than 1")
		}
		name, filename := splitNameFile(body)
		if filename == "" {
			filename = name
		}
		if filepath.Dir(filename) == "." && baseDir != "" {
			filename = filepath.Join(baseDir, filename)
		}
		if names[name] {
			return nil, xerrors.New(xerrors.KindStructure, "duplicate node name: "+name)
		}
		names[name] = true

		n := &Node{Name: name, Filename: filename, FilterIndex: filterIndex[filename], Parent: stack[depth]}
		filterIndex[filename]++
		stack[depth].Children = append(stack[depth].Children, n)
		stack = append(stack[:depth+1], n)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "reading topology file", err)
	}
	if len(dummy.Children) == 0 {
		return nil, xerrors.New(xerrors.KindStructure, "empty tree")
	}
	if len(dummy.Children) == 1 {
		root := dummy.Children[0]
		root.Parent = nil
		return root, nil
	}
	return dummy, nil
}

// WriteTopology writes root (and every descendant) as a depth-marked
// pre-order topology file, the inverse of ParseTopology (spec.md §4.6). A
// dummy forest root writes each of its children as a separate depth-0
// entry rather than writing itself.
func WriteTopology(w io.Writer, root *Node) error {
	bw := bufio.NewWriter(w)
	if root.Dummy {
		for _, c := range root.Children {
			if err := writeTopologyNode(bw, c, 0); err != nil {
				return err
			}
		}
	} else {
		if err := writeTopologyNode(bw, root, 0); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "writing topology file", err)
	}
	return nil
}

func writeTopologyNode(w *bufio.Writer, n *Node, depth int) error {
	var line string
	if n.Name != "" && n.Name != n.Filename {
		line = fmt.Sprintf("%s%s[%s]\n", strings.Repeat("*", depth), n.Name, n.Filename)
	} else {
		line = fmt.Sprintf("%s%s\n", strings.Repeat("*", depth), n.Filename)
	}
	if _, err := w.WriteString(line); err != nil {
		return xerrors.Wrap(xerrors.KindIO, "writing topology line", err)
	}
	for _, c := range n.Children {
		if err := writeTopologyNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// splitDepth counts leading '*' markers and returns the remaining text.
func splitDepth(line string) (int, string) {
	i := 0
	for i < len(line) && line[i] == '*' {
		i++
	}
	return i, line[i:]
}

// splitNameFile parses "name[filename]" or a bare filename, per spec.md
// §4.6.
func splitNameFile(body string) (name, filename string) {
	open := strings.IndexByte(body, '[')
	if open < 0 || !strings.HasSuffix(body, "]") {
		return body, body
	}
	return body[:open], body[open+1 : len(body)-1]
}
