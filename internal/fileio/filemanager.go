package fileio

import (
	"os"
	"sync"

	"github.com/howdesbt/howdesbt/internal/xerrors"
)

// Node is the weak-reference surface the file manager needs from a tree
// node: just enough to index it by name. The tree package's node type
// satisfies this without fileio importing tree (spec.md §3: "The file
// manager holds only weak references (by name) to nodes; nodes register
// themselves on construction").
type Node interface {
	Name() string
}

// FileManager is the process-wide map from filename to the node names
// that share it, and from node name to node, plus a single-open-file
// cache: opening a different filename closes whatever was open before
// (spec.md §3, §5). Container files routinely pack many nodes into one
// on-disk file, so this avoids repeated open/close churn across queries.
type FileManager struct {
	mu sync.Mutex

	filenameToNodes map[string][]string
	nodesByName     map[string]Node

	currentFilename string
	currentFile     *os.File
}

// NewFileManager returns an empty manager.
func NewFileManager() *FileManager {
	return &FileManager{
		filenameToNodes: make(map[string][]string),
		nodesByName:     make(map[string]Node),
	}
}

// Register records that node lives in filename, and makes it findable by
// name. Safe to call multiple times for nodes sharing a file.
func (fm *FileManager) Register(filename string, node Node) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.filenameToNodes[filename] = append(fm.filenameToNodes[filename], node.Name())
	fm.nodesByName[node.Name()] = node
}

// NodeByName looks up a previously registered node.
func (fm *FileManager) NodeByName(name string) (Node, bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	n, ok := fm.nodesByName[name]
	return n, ok
}

// NodesInFile lists the node names sharing filename, in registration order.
func (fm *FileManager) NodesInFile(filename string) []string {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return append([]string(nil), fm.filenameToNodes[filename]...)
}

// Open returns the *os.File for filename, opened read-only, reusing the
// currently cached handle if it already points at filename and closing it
// otherwise. Callers must not hold onto the returned handle past their
// next Open/Close call on this manager.
func (fm *FileManager) Open(filename string) (*os.File, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.currentFile != nil && fm.currentFilename == filename {
		return fm.currentFile, nil
	}
	if fm.currentFile != nil {
		_ = fm.currentFile.Close()
		fm.currentFile = nil
		fm.currentFilename = ""
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "opening container file "+filename, err)
	}
	fm.currentFile = f
	fm.currentFilename = filename
	return f, nil
}

// OpenForWrite is like Open but opens (creating if necessary, truncating
// if it exists) for read-write access, used while materializing a newly
// built node's filter.
func (fm *FileManager) OpenForWrite(filename string) (*os.File, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.currentFile != nil {
		_ = fm.currentFile.Close()
		fm.currentFile = nil
		fm.currentFilename = ""
	}
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindIO, "creating container file "+filename, err)
	}
	fm.currentFile = f
	fm.currentFilename = filename
	return f, nil
}

// Close closes whatever file is currently cached, if any.
func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if fm.currentFile == nil {
		return nil
	}
	err := fm.currentFile.Close()
	fm.currentFile = nil
	fm.currentFilename = ""
	if err != nil {
		return xerrors.Wrap(xerrors.KindIO, "closing container file", err)
	}
	return nil
}
