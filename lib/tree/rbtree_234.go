package tree

import (
	"github.com/benz9527/xrbt/lib/infra"
)

// 2-3-4 tree view of the rbtree.
//
// A black node with zero, one or two red children is a logical
// 2-node, 3-node or 4-node. The black children hanging below the
// node and its red members are the logical children.
//
// <X> is a RED node.
// [X] is a BLACK node (or NIL).
//
//	  2-node       3-node            3-node            4-node
//	   [B]          [B]               [B]               [B]
//	   / \          / \               / \              /   \
//	  c0  c1      <A>  c2            c0 <C>          <A>   <C>
//	              / \                   / \          / \   / \
//	             c0  c1                c1  c2       c0 c1 c2 c3

func is2Node[K infra.OrderedKey](n *rbNode[K]) bool {
	if n == nil {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] 2-3-4 node is nil"))
	}
	if n.isRed() {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] 2-3-4 node must be rooted at a black node"))
	}
	return !n.left.isRed() && !n.right.isRed()
}

// leftNode234 returns the first logical child of n.
func leftNode234[K infra.OrderedKey](n *rbNode[K]) *rbNode[K] {
	if n.left.isRed() {
		return n.left.left
	}
	return n.left
}

// secondNode234 returns the second logical child of n.
func secondNode234[K infra.OrderedKey](n *rbNode[K]) *rbNode[K] {
	if n.left.isRed() {
		return n.left.right
	} else if n.right.isRed() {
		return n.right.left
	}
	return n.right
}

func mustBeFat234[K infra.OrderedKey](n *rbNode[K]) {
	if n == nil || n.isRed() || is2Node(n) {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] extract from a nil, red or 2-3-4 2-node"))
	}
}

/*
extractLeft234 detaches the smallest member of the logical node n.
The extracted node is painted black and keeps its left logical child.
If keepRight is true, its right logical child stays behind as the first
child of the remainder, otherwise the child leaves together with the
extracted node and the remainder's left slot is emptied for the caller.

e1: The smallest member is the red left child A.

	   [B]                        [A]     [B]
	   / \   extract, keepRight   /       / \
	 <A>  ..  ===============>   c0     c1  ..
	 / \
	c0  c1

e2: The smallest member is n itself, the red right child C becomes the
new local root.

	  [B]                         [B]      [C]
	  / \    extract, keepRight   /        / \
	 c0 <C>  ===============>    c0       c1  c2
	    / \
	   c1  c2
*/
func extractLeft234[K infra.OrderedKey](n *rbNode[K], keepRight bool) (extracted, rest *rbNode[K]) {
	mustBeFat234(n)

	if /* e1 */ n.left.isRed() {
		extracted, rest = n.left, n
		if keepRight {
			n.left, extracted.right = extracted.right, nil
		} else {
			n.left = nil
		}
	} else /* e2 */ {
		extracted, rest = n, n.right
		if keepRight {
			extracted.right = nil
		} else {
			extracted.right, rest.left = rest.left, nil
		}
	}
	extracted.color, rest.color = Black, Black
	return extracted, rest
}

// extractRight234 is the mirror of extractLeft234.
func extractRight234[K infra.OrderedKey](n *rbNode[K], keepLeft bool) (extracted, rest *rbNode[K]) {
	mustBeFat234(n)

	if n.right.isRed() {
		extracted, rest = n.right, n
		if keepLeft {
			n.right, extracted.left = extracted.left, nil
		} else {
			n.right = nil
		}
	} else {
		extracted, rest = n, n.left
		if keepLeft {
			extracted.left = nil
		} else {
			extracted.left, rest.right = rest.right, nil
		}
	}
	extracted.color, rest.color = Black, Black
	return extracted, rest
}

/*
mergeNodes234 fuses two logical 2-nodes and their separator into a
single 4-node. The separator subtree keeps its black height only if
the separator was red. Merged at the black root, the tree shrinks.

	    <M>                  [M]
	    / \      merge       / \
	  [L] [R]  ========>   <L> <R>
*/
func mergeNodes234[K infra.OrderedKey](left, middle, right *rbNode[K]) *rbNode[K] {
	if middle == nil || left == nil || right == nil {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] merge with a nil 2-3-4 node"))
	}
	if !is2Node(left) || !is2Node(right) {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] merge requires two 2-3-4 2-nodes"))
	}

	middle.left, middle.right = left, right
	middle.color = Black
	left.color, right.color = Red, Red
	return middle
}

/*
leftBorrow234 moves the separator P down into its 2-node left child X
and lifts the smallest member S of the right sibling into P's place.
S's left logical child s0 follows P. The returned node replaces P and
inherits P's color, so the black height is unchanged.

	      {P}                            {S}
	     /   \                          /   \
	   [X]   [S]...     borrow        [X]   [..]
	   / \   /  \      ========>      / \
	  x0 x1 s0  ..                   x0 <P>
	                                    / \
	                                   x1  s0
*/
func leftBorrow234[K infra.OrderedKey](child, parent, sibling *rbNode[K]) *rbNode[K] {
	if parent.left != child || parent.right != sibling || !is2Node(child) {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] left borrow with a broken parent or a fat child"))
	}

	x, rest := extractLeft234(sibling, true)
	color := parent.color
	parent.left, parent.right = child.right, x.left
	parent.color = Red
	child.right = parent
	x.left, x.right = child, rest
	x.color = color
	return x
}

// rightBorrow234 is the mirror of leftBorrow234, the donor is the
// left sibling and its largest member is lifted.
func rightBorrow234[K infra.OrderedKey](child, parent, sibling *rbNode[K]) *rbNode[K] {
	if parent.right != child || parent.left != sibling || !is2Node(child) {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] right borrow with a broken parent or a fat child"))
	}

	x, rest := extractRight234(sibling, true)
	color := parent.color
	parent.left, parent.right = x.right, child.left
	parent.color = Red
	child.left = parent
	x.left, x.right = rest, child
	x.color = color
	return x
}

// fixChild234 makes the dir child of p a 3-node or a 4-node, either by
// merging it with its sibling or by borrowing from the sibling. p is red
// or the black 2-node root. The returned node replaces p.
func fixChild234[K infra.OrderedKey](p *rbNode[K], dir RBDirection) *rbNode[K] {
	switch dir {
	case Left:
		if is2Node(p.right) {
			return mergeNodes234(p.left, p, p.right)
		}
		return leftBorrow234(p.left, p, p.right)
	case Right:
		if is2Node(p.left) {
			return mergeNodes234(p.left, p, p.right)
		}
		return rightBorrow234(p.right, p, p.left)
	default:
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] unknown direction to fix"))
	}
}

/*
applyNo2NodeInvariant runs before the deletion descends into the dir
child of p. p is the logical node root h or one of h's red members.
Afterward the child is a logical 3-node or 4-node. The new root of h's
subtree is returned.

n1: p is h and the member on the other side is red. Lean h toward dir
first so that the child gets a black sibling under a red parent.

n2: p is h and h is a logical 2-node. Only legal at the tree root,
where a merge reduces the height of the whole tree.
*/
func applyNo2NodeInvariant[K infra.OrderedKey](h, p *rbNode[K], dir RBDirection, atRoot bool) *rbNode[K] {
	root := h
	if p == h {
		var other *rbNode[K]
		if dir == Left {
			other = h.right
		} else {
			other = h.left
		}

		if /* n1 */ other.isRed() {
			root = leanToward(h, dir)
		} else /* n2 */ if !atRoot {
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] descend from a black 2-3-4 2-node below the root"))
		}
	}

	fixed := fixChild234(p, dir)
	switch {
	case root == p:
		return fixed
	case root.left == p:
		root.left = fixed
	case root.right == p:
		root.right = fixed
	default:
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] fixed node lost its parent"))
	}
	return root
}
