package tree

import (
	"io"

	"github.com/benz9527/xrbt/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor,RBDirection -output=rbcolor_string.go
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

// RBNode is the read-only view handed out to tree consumers.
// An absent child is reported as a nil interface.
type RBNode[K infra.OrderedKey] interface {
	Key() K
	Color() RBColor
	Left() RBNode[K]
	Right() RBNode[K]
	String() string
}

type RBTree[K infra.OrderedKey] interface {
	Len() int64
	Root() RBNode[K]
	// Insert panics with ErrUnorderedKey on a NaN key.
	Insert(key K)
	Search(key K) (K, bool)
	// Successor follows the tree order, so a descending tree reports
	// the next smaller key.
	Successor(key K) (K, bool)
	Min() (K, bool)
	Max() (K, bool)
	DeleteMin() (K, bool)
	Delete(key K) (K, bool)
	ToArray() []RBNode[K]
	ToSet() map[K]struct{}
	Foreach(action func(idx int64, color RBColor, key K) bool)
	Serialize() string
	Encode(w io.Writer) error
	Release()
}
