package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsSingleChildInternalNode(t *testing.T) {
	root := &Node{Name: "root"}
	only := &Node{Name: "only", Parent: root}
	root.Children = []*Node{only}
	grandchild := &Node{Name: "gc", Parent: only}
	only.Children = []*Node{grandchild}

	err := Validate(root)
	require.Error(t, err)
}

func TestValidate_AcceptsBalancedTree(t *testing.T) {
	root := &Node{Name: "root"}
	a := &Node{Name: "a", Parent: root}
	b := &Node{Name: "b", Parent: root}
	root.Children = []*Node{a, b}

	require.NoError(t, Validate(root))
}

func TestValidate_RejectsNilTree(t *testing.T) {
	require.Error(t, Validate(nil))
}

func TestValidate_RejectsDuplicateNames(t *testing.T) {
	root := &Node{Name: "root"}
	a := &Node{Name: "dup", Parent: root}
	b := &Node{Name: "dup", Parent: root}
	root.Children = []*Node{a, b}

	require.Error(t, Validate(root))
}
