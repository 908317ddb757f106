// Package kicadsexp is a streaming S-expression reader for KiCad documents.
// Lists remember where they started so callers can point at the offending
// line when a document is rejected.
package kicadsexp

import "strings"

// Sexp represents an S-expression node.
// It can be either a leaf (atom) or a list.
type Sexp interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// LeafCount returns the number of elements in a list (1 for atoms)
	LeafCount() int

	// Head returns the first element of a list (the atom itself for atoms)
	Head() Sexp

	// Tail returns the rest of the list after the first element (nil for atoms)
	Tail() Sexp

	String() string
}

// Symbol represents an atomic symbol (string, number, identifier)
type Symbol string

func (s Symbol) IsLeaf() bool   { return true }
func (s Symbol) LeafCount() int { return 1 }
func (s Symbol) Head() Sexp     { return s }
func (s Symbol) Tail() Sexp     { return nil }
func (s Symbol) String() string { return string(s) }

// List represents a list of S-expressions
type List struct {
	elements []Sexp
	pos      Pos
}

// NewList builds a list; mostly useful in tests.
func NewList(elems ...Sexp) *List {
	return &List{elements: elems}
}

func (l *List) IsLeaf() bool { return false }

func (l *List) LeafCount() int {
	return len(l.elements)
}

func (l *List) Head() Sexp {
	if len(l.elements) == 0 {
		return nil
	}
	return l.elements[0]
}

func (l *List) Tail() Sexp {
	if len(l.elements) <= 1 {
		return nil
	}
	return &List{elements: l.elements[1:], pos: l.pos}
}

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, elem := range l.elements {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(elem.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Get returns the element at the given index
func (l *List) Get(index int) Sexp {
	if index < 0 || index >= len(l.elements) {
		return nil
	}
	return l.elements[index]
}

// Len returns the number of elements in the list
func (l *List) Len() int {
	return len(l.elements)
}

// Elements returns the list's children.
func (l *List) Elements() []Sexp {
	return l.elements
}

// Pos is where the list's opening parenthesis appeared.
func (l *List) Pos() Pos {
	return l.pos
}

// PosOf returns the source position of a node, or the zero Pos for atoms.
func PosOf(s Sexp) Pos {
	if l, ok := s.(*List); ok {
		return l.pos
	}
	return Pos{}
}

// Census counts the lists and atoms in a tree.
func Census(s Sexp) (lists, atoms int) {
	l, ok := s.(*List)
	if !ok {
		return 0, 1
	}
	lists = 1
	for _, e := range l.elements {
		cl, ca := Census(e)
		lists += cl
		atoms += ca
	}
	return lists, atoms
}
