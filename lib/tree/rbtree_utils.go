package tree

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
)

// rbtree rule validation utilities.
// They read the tree through the RBNode view only. Except for
// CycleValidate, every validator expects an acyclic node graph.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

var (
	ErrRedViolation   = errors.New("rbtree red violation")
	ErrBlackViolation = errors.New("rbtree black violation")
	ErrRootColor      = errors.New("rbtree root is not black")
	ErrOrderViolation = errors.New("rbtree order violation")
	ErrCycle          = errors.New("rbtree node graph has a cycle")
)

func isRed[K infra.OrderedKey](node RBNode[K]) bool {
	return node != nil && node.Color() == Red
}

func isBlack[K infra.OrderedKey](node RBNode[K]) bool {
	return node == nil || node.Color() == Black
}

// Inorder traversal to validate the rbtree properties.
func RedViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	size := tree.Len()
	aux := tree.Root()
	if size < 0 || aux == nil {
		return nil
	}

	stack := make([]RBNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; isRed[K](aux) {
			if isRed[K](aux.Left()) || isRed[K](aux.Right()) {
				return fmt.Errorf("%w: red node %v has a red child", ErrRedViolation, aux.Key())
			}
		}

		stack = stack[:size-1]
		if aux.Right() != nil {
			for aux = aux.Right(); aux != nil; aux = aux.Left() {
				stack = append(stack, aux)
			}
		}
	}
	return nil
}

// blackHeight returns the black count of every path below node, absent
// children counted as one black, or -1 if the paths disagree.
func blackHeight[K infra.OrderedKey](node RBNode[K]) (int, RBNode[K]) {
	if node == nil {
		return 1, nil
	}
	l, bad := blackHeight[K](node.Left())
	if l < 0 {
		return -1, bad
	}
	r, bad := blackHeight[K](node.Right())
	if r < 0 {
		return -1, bad
	}
	if l != r {
		return -1, node
	}
	if isBlack[K](node) {
		l++
	}
	return l, nil
}

// Postorder traversal to validate every root-to-absent-child path
// carries the same black count.
func BlackViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	if h, bad := blackHeight[K](tree.Root()); h < 0 {
		return fmt.Errorf("%w: subtrees of %v differ in black height", ErrBlackViolation, bad.Key())
	}
	return nil
}

func RootColorValidate[K infra.OrderedKey](tree RBTree[K]) error {
	if root := tree.Root(); isRed[K](root) {
		return fmt.Errorf("%w: root %v is red", ErrRootColor, root.Key())
	}
	return nil
}

// OrderViolationValidate checks the inorder keys are strictly increasing
// in the tree order.
func OrderViolationValidate[K infra.OrderedKey](tree RBTree[K]) error {
	cmp := infra.AscComparator[K]
	if c, ok := tree.(interface{ keyCompare(K, K) int64 }); ok {
		cmp = c.keyCompare
	}

	var (
		err      error
		prev     K
		hasPrev  bool
		prevNode int64
	)
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		if hasPrev && cmp(prev, key) >= 0 {
			err = fmt.Errorf("%w: key %v at %d is not before key %v at %d", ErrOrderViolation, prev, prevNode, key, idx)
			return false
		}
		prev, hasPrev, prevNode = key, true, idx
		return true
	})
	return err
}

// CycleValidate walks the node graph in preorder and reports a node
// reachable twice.
func CycleValidate[K infra.OrderedKey](tree RBTree[K]) error {
	root := tree.Root()
	if root == nil {
		return nil
	}

	visited := make(map[RBNode[K]]struct{}, tree.Len())
	stack := []RBNode[K]{root}
	for len(stack) > 0 {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[aux]; ok {
			return fmt.Errorf("%w: node %v reached twice", ErrCycle, aux.Key())
		}
		visited[aux] = struct{}{}
		if r := aux.Right(); r != nil {
			stack = append(stack, r)
		}
		if l := aux.Left(); l != nil {
			stack = append(stack, l)
		}
	}
	return nil
}

// Validate runs every validator and merges the failures. A cyclic graph
// is reported alone because the other walks would not terminate.
func Validate[K infra.OrderedKey](tree RBTree[K]) error {
	if err := CycleValidate[K](tree); err != nil {
		return err
	}
	return multierr.Combine(
		RootColorValidate[K](tree),
		RedViolationValidate[K](tree),
		BlackViolationValidate[K](tree),
		OrderViolationValidate[K](tree),
	)
}
