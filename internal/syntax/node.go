// Package syntax wraps tree-sitter parse trees behind a small node
// interface and provides the bounded traversal used by the analyzers.
package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node is a read-only view of one syntax tree node. A nil Node means
// "no such node"; implementations must return an untyped nil rather than a
// typed nil pointer.
type Node interface {
	Kind() string
	StartByte() uint32
	EndByte() uint32
	// StartLine is 0-based.
	StartLine() uint32
	StartColumn() uint32
	ChildCount() int
	Child(i int) Node
	// ChildByField returns the child stored under a grammar field name such
	// as "name" or "operator", or nil when the node has none.
	ChildByField(name string) Node
	Parent() Node
	// IsError reports ERROR and MISSING nodes inserted by error recovery.
	IsError() bool
}

type sitterNode struct {
	n *sitter.Node
}

// Wrap adapts a tree-sitter node. It returns nil for a nil node.
func Wrap(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return sitterNode{n: n}
}

// Unwrap returns the tree-sitter node behind n, or nil when n was not
// produced by Wrap.
func Unwrap(n Node) *sitter.Node {
	if s, ok := n.(sitterNode); ok {
		return s.n
	}
	return nil
}

func (s sitterNode) Kind() string { return s.n.Type() }
func (s sitterNode) StartByte() uint32 { return s.n.StartByte() }
func (s sitterNode) EndByte() uint32 { return s.n.EndByte() }
func (s sitterNode) StartLine() uint32 { return s.n.StartPoint().Row }
func (s sitterNode) StartColumn() uint32 { return s.n.StartPoint().Column }
func (s sitterNode) ChildCount() int { return int(s.n.ChildCount()) }
func (s sitterNode) Child(i int) Node { return Wrap(s.n.Child(i)) }
func (s sitterNode) Parent() Node { return Wrap(s.n.Parent()) }
func (s sitterNode) IsError() bool { return s.n.IsError() || s.n.IsMissing() }

func (s sitterNode) ChildByField(name string) Node {
	return Wrap(s.n.ChildByFieldName(name))
}

// Text slices the source covered by n. Out-of-range spans yield "" instead
// of panicking, since offsets are only meaningful against the buffer the
// tree was parsed from.
func Text(n Node, source []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start > end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}
