package tree

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/infra"
	"github.com/benz9527/xrbt/lib/xlog"
)

// References:
// https://www.cs.princeton.edu/~rs/talks/LLRB/RedBlack.pdf
// https://en.wikipedia.org/wiki/2%E2%80%933%E2%80%934_tree
// rbtree properties:
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// The tree is kept as the binary encoding of a 2-3-4 tree. Insertion
// splits every 4-node met on the way down, deletion never descends into
// a 2-node. Both passes run top-down without parent links.

type rbTree[K infra.OrderedKey] struct {
	root     *rbNode[K]
	count    int64
	isDesc   bool
	cmp      infra.OrderedKeyComparator[K]
	codec    KeyCodec[K]
	logger   xlog.XLogger
	poisoned error
}

type deleteResult[K infra.OrderedKey] struct {
	root  *rbNode[K]
	key   K
	found bool
}

func (tree *rbTree[K]) keyCompare(k1, k2 K) int64 {
	return tree.cmp(k1, k2)
}

func (tree *rbTree[K]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K]) Root() RBNode[K] {
	tree.checkPoisoned()
	if tree.root == nil {
		return nil
	}
	return tree.root
}

func (tree *rbTree[K]) checkPoisoned() {
	if tree.poisoned != nil {
		panic(tree.poisoned)
	}
}

// guard turns a broken internal assertion into a poisoned tree.
// The structure may be half rewritten, so it is detached and every
// later call panics with the same error.
func (tree *rbTree[K]) guard(op string) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = infra.NewErrorStack(fmt.Sprint(r))
	}
	err = infra.WrapErrorStack(err, "[rbtree] "+op+" aborted")
	tree.logger.ErrorStack(err, "[rbtree] tree poisoned",
		zap.String("op", op),
		zap.Int64("len", atomic.LoadInt64(&tree.count)),
	)
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	tree.poisoned = err
	panic(err)
}

// Insert adds key, or overwrites the stored equal key. A NaN key panics
// with ErrUnorderedKey and leaves the tree untouched.
func (tree *rbTree[K]) Insert(key K) {
	tree.checkPoisoned()
	// Only NaN compares unequal to itself.
	if key != key {
		panic(ErrUnorderedKey)
	}
	defer tree.guard("Insert")

	tree.root = tree.insert(tree.root, key)
	tree.root.color = Black
}

/*
insert splits each 4-node on the way down and rebalances on the way up.

i1: Both children are red. Split the 4-node by pushing the node up into
its parent logical node.

	   [B]                <B>
	   / \     split      / \
	 <A> <C>  ======>   [A] [C]

i2: A red child with a red child of its own on the same side, recenter
(centerLeft4Node / centerRight4Node).

i3: A red child with a red child on the inner side, rotate the child
first to reduce to i2.
*/
func (tree *rbTree[K]) insert(node *rbNode[K], key K) *rbNode[K] {
	if node == nil {
		atomic.AddInt64(&tree.count, 1)
		return newRedNode(key)
	}

	if /* i1 */ node.left.isRed() && node.right.isRed() {
		node.color = Red
		node.left.color, node.right.color = Black, Black
	}

	if res := tree.cmp(key, node.key); res == 0 {
		node.key = key
	} else if res < 0 {
		node.left = tree.insert(node.left, key)
	} else {
		node.right = tree.insert(node.right, key)
	}

	if node.left.isRed() {
		if /* i2 */ node.left.left.isRed() {
			node = centerLeft4Node(node)
		} else if /* i3 */ node.left.right.isRed() {
			node.left = rotateLeft(node.left)
			node = centerLeft4Node(node)
		}
	} else if node.right.isRed() {
		if /* i3 */ node.right.left.isRed() {
			node.right = rotateRight(node.right)
			node = centerRight4Node(node)
		} else if /* i2 */ node.right.right.isRed() {
			node = centerRight4Node(node)
		}
	}
	return node
}

func (tree *rbTree[K]) search(key K) *rbNode[K] {
	for aux := tree.root; aux != nil; {
		res := tree.cmp(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K]) Search(key K) (res K, ok bool) {
	tree.checkPoisoned()
	if node := tree.search(key); node != nil {
		return node.key, true
	}
	return res, false
}

// Successor returns the first stored key strictly after key in the tree
// order. With WithRBTreeDesc that is the next smaller key, not the next
// greater one.
func (tree *rbTree[K]) Successor(key K) (res K, ok bool) {
	tree.checkPoisoned()
	var succ *rbNode[K]
	for aux := tree.root; aux != nil; {
		if tree.cmp(aux.key, key) <= 0 {
			aux = aux.right
		} else {
			succ = aux
			aux = aux.left
		}
	}
	if succ == nil {
		return res, false
	}
	return succ.key, true
}

func (tree *rbTree[K]) Min() (res K, ok bool) {
	tree.checkPoisoned()
	if tree.root == nil {
		return res, false
	}
	return tree.root.minimum().key, true
}

func (tree *rbTree[K]) Max() (res K, ok bool) {
	tree.checkPoisoned()
	if tree.root == nil {
		return res, false
	}
	return tree.root.maximum().key, true
}

func (tree *rbTree[K]) DeleteMin() (res K, ok bool) {
	tree.checkPoisoned()
	if tree.root == nil {
		return res, false
	}
	defer tree.guard("DeleteMin")

	removed := tree.deleteMin234(tree.root, true)
	tree.root = removed.root
	if tree.root != nil {
		tree.root.color = Black
	}
	atomic.AddInt64(&tree.count, -1)
	return removed.key, true
}

// deleteMin234 removes the first key below h. h is black and is not a
// logical 2-node unless it is the tree root.
func (tree *rbTree[K]) deleteMin234(h *rbNode[K], atRoot bool) deleteResult[K] {
	var c *rbNode[K]
	for {
		if c = leftNode234(h); c == nil {
			return removeLeftmost234(h, atRoot)
		}
		if !is2Node(c) {
			break
		}
		p := h
		if h.left.isRed() {
			p = h.left
		}
		h = applyNo2NodeInvariant(h, p, Left, atRoot)
	}

	sub := tree.deleteMin234(c, false)
	if h.left == c {
		h.left = sub.root
	} else {
		h.left.left = sub.root
	}
	sub.root = h
	return sub
}

// removeLeftmost234 drops the first member of the leaf logical node h.
func removeLeftmost234[K infra.OrderedKey](h *rbNode[K], atRoot bool) deleteResult[K] {
	if is2Node(h) {
		if !atRoot || h.right != nil {
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] remove from a 2-3-4 2-node leaf below the root"))
		}
		return deleteResult[K]{root: nil, key: h.key, found: true}
	}
	x, rest := extractLeft234(h, false)
	return deleteResult[K]{root: rest, key: x.key, found: true}
}

func (tree *rbTree[K]) Delete(key K) (res K, ok bool) {
	tree.checkPoisoned()
	if tree.root == nil {
		return res, false
	}
	defer tree.guard("Delete")

	removed := tree.delete234(tree.root, key, true)
	tree.root = removed.root
	if tree.root != nil {
		tree.root.color = Black
	}
	if !removed.found {
		return res, false
	}
	atomic.AddInt64(&tree.count, -1)
	return removed.key, true
}

// locate234 looks the key up inside the logical node h. Either the
// member holding the key is returned, or the parent and the side of
// the child slot the search continues in.
func (tree *rbTree[K]) locate234(h *rbNode[K], key K) (member, p *rbNode[K], dir RBDirection) {
	res := tree.cmp(key, h.key)
	if res == 0 {
		return h, nil, Root
	}

	var red *rbNode[K]
	dir, red = Left, h.left
	if res > 0 {
		dir, red = Right, h.right
	}
	if !red.isRed() {
		return nil, h, dir
	}

	if res = tree.cmp(key, red.key); res == 0 {
		return red, nil, Root
	} else if res < 0 {
		return nil, red, Left
	}
	return nil, red, Right
}

/*
delete234 removes key from the subtree of h. h is black and is not a
logical 2-node unless it is the tree root.

d1: The key is a member of a leaf logical node, drop it in place.

d2: The key is a member of an internal logical node. Its successor is
the first key below the right child of the member. The successor is
removed by deleteMin234 and copied into the member.

d3: The key is not in h, go down the child slot between the members.

The child gone down into is fixed first if it is a 2-node, and then
the key is located again because the fix may move it.
*/
func (tree *rbTree[K]) delete234(h *rbNode[K], key K, atRoot bool) deleteResult[K] {
	for {
		m, p, dir := tree.locate234(h, key)
		if m != nil {
			if /* d1 */ leftNode234(h) == nil {
				return deleteResult[K]{root: removeMember234(h, m, atRoot), key: m.key, found: true}
			}
			p, dir = m, Right
			if m == h && h.right.isRed() {
				p, dir = h.right, Left
			}
		}

		target := p.left
		if dir == Right {
			target = p.right
		}
		if target == nil {
			return deleteResult[K]{root: h}
		}
		if is2Node(target) {
			h = applyNo2NodeInvariant(h, p, dir, atRoot)
			continue
		}

		var sub deleteResult[K]
		if /* d2 */ m != nil {
			sub = tree.deleteMin234(target, false)
		} else /* d3 */ {
			sub = tree.delete234(target, key, false)
		}
		if dir == Left {
			p.left = sub.root
		} else {
			p.right = sub.root
		}
		if m != nil {
			sub.key, m.key = m.key, sub.key
		}
		sub.root = h
		return sub
	}
}

// removeMember234 drops member m from the leaf logical node h and returns
// the new local root.
func removeMember234[K infra.OrderedKey](h, m *rbNode[K], atRoot bool) *rbNode[K] {
	switch {
	case m == h.left:
		h.left = nil
		return h
	case m == h.right:
		h.right = nil
		return h
	case is2Node(h):
		if !atRoot {
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] remove from a 2-3-4 2-node leaf below the root"))
		}
		return nil
	case h.left.isRed():
		a := h.left
		a.right, a.color = h.right, Black
		h.left, h.right = nil, nil
		return a
	default:
		_, rest := extractLeft234(h, false)
		return rest
	}
}

// ToArray returns the nodes in preorder.
func (tree *rbTree[K]) ToArray() []RBNode[K] {
	tree.checkPoisoned()
	if tree.root == nil {
		return []RBNode[K]{}
	}
	defer tree.guard("ToArray")

	size := atomic.LoadInt64(&tree.count)
	res := make([]RBNode[K], 0, size)
	visited := make(map[*rbNode[K]]struct{}, size)
	stack := make([]*rbNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for stack = append(stack, tree.root); len(stack) > 0; {
		aux := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[aux]; ok {
			panic( /* debug assertion */ infra.NewErrorStack(fmt.Sprintf("[rbtree] cycle detected at node %v", aux.key)))
		}
		visited[aux] = struct{}{}
		res = append(res, aux)
		if aux.right != nil {
			stack = append(stack, aux.right)
		}
		if aux.left != nil {
			stack = append(stack, aux.left)
		}
	}
	return res
}

func (tree *rbTree[K]) ToSet() map[K]struct{} {
	set := make(map[K]struct{}, atomic.LoadInt64(&tree.count))
	tree.Foreach(func(idx int64, color RBColor, key K) bool {
		set[key] = struct{}{}
		return true
	})
	return set
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K]) Foreach(action func(idx int64, color RBColor, key K) bool) {
	tree.checkPoisoned()
	size := atomic.LoadInt64(&tree.count)
	aux := tree.root
	if size < 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key) {
			return
		}
		idx++
		stack = stack[:size-1]
		if aux.right != nil {
			for aux = aux.right; aux != nil; aux = aux.left {
				stack = append(stack, aux)
			}
		}
	}
}

func (tree *rbTree[K]) Release() {
	tree.checkPoisoned()
	size := atomic.LoadInt64(&tree.count)
	aux := tree.root
	tree.root = nil
	if size < 0 || aux == nil {
		return
	}

	stack := make([]*rbNode[K], 0, size>>1)
	defer func() {
		clear(stack)
	}()

	for ; aux != nil; aux = aux.left {
		stack = append(stack, aux)
	}

	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		aux = stack[size-1]
		r := aux.right
		aux.left, aux.right = nil, nil
		atomic.AddInt64(&tree.count, -1)
		stack = stack[:size-1]
		if r != nil {
			for aux = r; aux != nil; aux = aux.left {
				stack = append(stack, aux)
			}
		}
	}
}

type RBTreeOpt[K infra.OrderedKey] func(*rbTree[K])

func WithRBTreeDesc[K infra.OrderedKey]() RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		tree.isDesc = true
	}
}

func WithRBTreeLogger[K infra.OrderedKey](logger xlog.XLogger) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if logger != nil {
			tree.logger = logger
		}
	}
}

// WithRBTreeKeyCodec replaces the text form of the keys used by
// Serialize and Deserialize.
func WithRBTreeKeyCodec[K infra.OrderedKey](codec KeyCodec[K]) RBTreeOpt[K] {
	return func(tree *rbTree[K]) {
		if codec != nil {
			tree.codec = codec
		}
	}
}

func NewRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) RBTree[K] {
	return newRBTree[K](opts...)
}

func newRBTree[K infra.OrderedKey](opts ...RBTreeOpt[K]) *rbTree[K] {
	tree := &rbTree[K]{
		count:  0,
		isDesc: false,
	}

	for _, o := range opts {
		o(tree)
	}
	if tree.isDesc {
		tree.cmp = infra.DescComparator[K]
	} else {
		tree.cmp = infra.AscComparator[K]
	}
	if tree.codec == nil {
		tree.codec = DefaultKeyCodec[K]()
	}
	if tree.logger == nil {
		tree.logger = xlog.NewNopXLogger()
	}
	return tree
}
