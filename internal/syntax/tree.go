package syntax

import (
	"errors"
	"fmt"
)

var (
	// ErrNoGrammar is returned when a builder is asked for a language without a grammar.
	ErrNoGrammar = errors.New("language has no grammar")
	// ErrParseFailed is returned when the parser yields no tree.
	ErrParseFailed = errors.New("parser returned no tree")
)

// ParseError describes a failed parse of one file.
type ParseError struct {
	Language string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Language, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Tree owns a root node and the exact buffer it was parsed from. Byte
// spans of its nodes are only meaningful against Source.
type Tree struct {
	root     Node
	source   []byte
	hasError bool
	release  func()
}

// NewTree wraps an already built root. It is used for trees that do not
// come from tree-sitter.
func NewTree(root Node, source []byte) *Tree {
	return &Tree{root: root, source: source}
}

func (t *Tree) Root() Node {
	return t.root
}

func (t *Tree) Source() []byte {
	return t.source
}

// Text returns the source text covered by n.
func (t *Tree) Text(n Node) string {
	return Text(n, t.source)
}

// HasError reports whether error recovery inserted ERROR or MISSING nodes.
func (t *Tree) HasError() bool {
	return t.hasError
}

// Close frees the underlying parse tree. Nodes must not be used afterwards.
func (t *Tree) Close() {
	if t.release != nil {
		t.release()
		t.release = nil
	}
	t.root = nil
}
