package tree

import (
	"fmt"

	"github.com/benz9527/xrbt/lib/infra"
)

// rbNode has no parent link. Every structural rewrite
// returns the new local root and the caller reattaches it.
type rbNode[K infra.OrderedKey] struct {
	left  *rbNode[K]
	right *rbNode[K]
	key   K
	color RBColor
}

func newRedNode[K infra.OrderedKey](key K) *rbNode[K] {
	return &rbNode[K]{
		key:   key,
		color: Red,
	}
}

func (node *rbNode[K]) Key() K {
	return node.key
}

func (node *rbNode[K]) Color() RBColor {
	return node.color
}

func (node *rbNode[K]) Left() RBNode[K] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *rbNode[K]) Right() RBNode[K] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

// String prints [left,key,color,right] with null for an absent child.
func (node *rbNode[K]) String() string {
	if node == nil {
		return "null"
	}
	l, r := "null", "null"
	if node.left != nil {
		l = fmt.Sprint(node.left.key)
	}
	if node.right != nil {
		r = fmt.Sprint(node.right.key)
	}
	return fmt.Sprintf("[%s,%v,%s,%s]", l, node.key, colorText(node.color), r)
}

func (node *rbNode[K]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *rbNode[K]) isBlack() bool {
	return node == nil || node.color == Black
}

func (node *rbNode[K]) minimum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

func (node *rbNode[K]) maximum() *rbNode[K] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

/*
		 |                         |
		 X                         S
		/ \     rotateLeft(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc

Colors are left untouched.
*/
func rotateLeft[K infra.OrderedKey](x *rbNode[K]) *rbNode[K] {
	if x == nil || x.right == nil {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] left rotate node x is nil or x.right is nil"))
	}
	y := x.right
	x.right, y.left = y.left, x
	return y
}

/*
		 |                         |
		 X                         S
		/ \     rotateRight(S)    / \
	   L   S    <============    X   R
		  / \                   / \
		Sc   Sd               Sc   Sd

Colors are left untouched.
*/
func rotateRight[K infra.OrderedKey](x *rbNode[K]) *rbNode[K] {
	if x == nil || x.left == nil {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] right rotate node x is nil or x.left is nil"))
	}
	y := x.left
	x.left, y.right = y.right, x
	return y
}

/*
A 4-node leaning doubly to the left is centered.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P>  C   ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                          C                 C
*/
func centerLeft4Node[K infra.OrderedKey](x *rbNode[K]) *rbNode[K] {
	y := rotateRight(x)
	y.color = Black
	y.right.color = Red
	return y
}

// centerRight4Node is the mirror of centerLeft4Node.
func centerRight4Node[K infra.OrderedKey](x *rbNode[K]) *rbNode[K] {
	y := rotateLeft(x)
	y.color = Black
	y.left.color = Red
	return y
}

/*
leanToward flips a logical 3-node so that x ends up as the red
member on the dir side of the new local root. It exposes a black
logical sibling next to x's dir child.

	  [X]                    [S]
	  / \   leanToward(X,L)  / \
	 A  <S>  ============>  <X> C
	    / \                 / \
	   B   C               A   B
*/
func leanToward[K infra.OrderedKey](x *rbNode[K], dir RBDirection) *rbNode[K] {
	if x.isRed() {
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] lean a red node"))
	}

	var y *rbNode[K]
	switch dir {
	case Left:
		if !x.right.isRed() {
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] lean left without a red right member"))
		}
		y = rotateLeft(x)
	case Right:
		if !x.left.isRed() {
			panic( /* debug assertion */ infra.NewErrorStack("[rbtree] lean right without a red left member"))
		}
		y = rotateRight(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ infra.NewErrorStack("[rbtree] unknown direction to lean"))
	}
	y.color, x.color = x.color, Red
	return y
}

func colorText(c RBColor) string {
	if c == Red {
		return "red"
	}
	return "black"
}
