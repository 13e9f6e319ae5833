// Package syntaxtest builds in-memory syntax trees for tests that need
// shapes a real grammar will not produce.
package syntaxtest

import (
	"github.com/agentic-research/devsentinel/internal/syntax"
)

// Node is a hand-built syntax.Node.
type Node struct {
	K      string
	Start  uint32
	End    uint32
	Line   uint32
	Kids   []*Node
	Fields map[string]*Node
	Err    bool

	// PanicOnField makes ChildByField panic, simulating an unexpected node
	// shape.
	PanicOnField bool

	parent *Node
}

// New returns a node of kind with children attached.
func New(kind string, kids ...*Node) *Node {
	n := &Node{K: kind}
	n.Add(kids...)
	return n
}

// Span returns a leaf covering source[start:end].
func Span(kind string, start, end uint32) *Node {
	return &Node{K: kind, Start: start, End: end}
}

// Add appends children and sets their parent.
func (n *Node) Add(kids ...*Node) *Node {
	for _, k := range kids {
		if k != nil {
			k.parent = n
		}
		n.Kids = append(n.Kids, k)
	}
	return n
}

// Field registers kid under a field name and appends it as a child.
func (n *Node) Field(name string, kid *Node) *Node {
	if n.Fields == nil {
		n.Fields = make(map[string]*Node)
	}
	n.Fields[name] = kid
	return n.Add(kid)
}

// At sets the 0-based start line.
func (n *Node) At(line uint32) *Node {
	n.Line = line
	return n
}

// Chain builds a path of depth nodes, each the single child of the last,
// all of the given kind. It returns the head and the tail.
func Chain(kind string, depth int) (head, tail *Node) {
	head = New(kind)
	tail = head
	for i := 1; i < depth; i++ {
		next := New(kind)
		tail.Add(next)
		tail = next
	}
	return head, tail
}

func (n *Node) Kind() string { return n.K }
func (n *Node) StartByte() uint32 { return n.Start }
func (n *Node) EndByte() uint32 { return n.End }
func (n *Node) StartLine() uint32 { return n.Line }
func (n *Node) StartColumn() uint32 { return 0 }
func (n *Node) ChildCount() int { return len(n.Kids) }
func (n *Node) IsError() bool { return n.Err }

func (n *Node) Child(i int) syntax.Node {
	if i < 0 || i >= len(n.Kids) || n.Kids[i] == nil {
		return nil
	}
	return n.Kids[i]
}

func (n *Node) ChildByField(name string) syntax.Node {
	if n.PanicOnField {
		panic("syntaxtest: unexpected field lookup " + name)
	}
	if k := n.Fields[name]; k != nil {
		return k
	}
	return nil
}

func (n *Node) Parent() syntax.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Loop is a node that lists itself as its only child, so a naive walk
// never ends.
type Loop struct {
	Node
}

func (l *Loop) ChildCount() int { return 1 }
func (l *Loop) Child(int) syntax.Node { return l }
func (l *Loop) Parent() syntax.Node { return l }
