package syntax

import (
	"github.com/sirupsen/logrus"
)

// DefaultBudget is the number of traversal steps a Walker takes before it
// gives up.
const DefaultBudget = 100_000

type frame struct {
	node Node
	next int
}

// Walker is an iterative pre-order traversal over a Node tree. Children
// are visited in source order. Every child fetch and every frame pop costs
// one step; once the budget is spent Next returns false and Truncated
// reports true, so even a tree whose nodes point back at themselves is
// walked in bounded time.
//
// A Walker is not safe for concurrent use.
type Walker struct {
	root   Node
	budget int
	log    logrus.FieldLogger
	label  string

	stack     []frame
	current   Node
	skip      bool
	started   bool
	steps     int
	truncated bool
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithBudget lowers the step budget. DefaultBudget is also the ceiling;
// values below 1 or above it keep the default.
func WithBudget(steps int) WalkerOption {
	return func(w *Walker) {
		if steps > 0 && steps <= DefaultBudget {
			w.budget = steps
		}
	}
}

// WithLogger sets where the budget warning is written. label identifies the
// walk in the log line (usually a file path).
func WithLogger(log logrus.FieldLogger, label string) WalkerOption {
	return func(w *Walker) {
		if log != nil {
			w.log = log
		}
		w.label = label
	}
}

// NewWalker returns a walker positioned before root.
func NewWalker(root Node, opts ...WalkerOption) *Walker {
	w := &Walker{
		root:   root,
		budget: DefaultBudget,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Next advances to the next node. It returns false when the tree is
// exhausted or the step budget ran out.
func (w *Walker) Next() bool {
	if w.truncated {
		return false
	}
	if !w.started {
		w.started = true
		if w.root == nil || !w.step() {
			return false
		}
		w.current = w.root
		return true
	}

	if w.current != nil && !w.skip && w.current.ChildCount() > 0 {
		w.stack = append(w.stack, frame{node: w.current})
	}
	w.current = nil
	w.skip = false

	for len(w.stack) > 0 {
		if !w.step() {
			return false
		}
		top := &w.stack[len(w.stack)-1]
		if top.next >= top.node.ChildCount() {
			w.stack[len(w.stack)-1] = frame{}
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}
		child := top.node.Child(top.next)
		top.next++
		if child == nil {
			continue
		}
		w.current = child
		return true
	}
	return false
}

// Node returns the node Next stopped on.
func (w *Walker) Node() Node {
	return w.current
}

// Field returns the named child of the current node, or nil.
func (w *Walker) Field(name string) Node {
	if w.current == nil {
		return nil
	}
	return w.current.ChildByField(name)
}

// Depth is the number of ancestors of the current node.
func (w *Walker) Depth() int {
	return len(w.stack)
}

// SkipChildren prunes the subtree below the current node.
func (w *Walker) SkipChildren() {
	w.skip = true
}

// Steps returns the number of steps taken so far.
func (w *Walker) Steps() int {
	return w.steps
}

// Truncated reports whether the walk stopped because of the budget.
func (w *Walker) Truncated() bool {
	return w.truncated
}

// Reset rewinds the walker to before the root, clearing the budget.
func (w *Walker) Reset() {
	w.stack = w.stack[:0]
	w.current = nil
	w.skip = false
	w.started = false
	w.steps = 0
	w.truncated = false
}

func (w *Walker) step() bool {
	w.steps++
	if w.steps <= w.budget {
		return true
	}
	w.truncated = true
	w.current = nil
	w.log.WithFields(logrus.Fields{
		"file":   w.label,
		"budget": w.budget,
	}).Warn("syntax tree traversal budget exhausted, stopping early")
	return false
}
