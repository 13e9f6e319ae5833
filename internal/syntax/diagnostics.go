package syntax

import (
	"fmt"
)

// Diagnostic is a syntax error location found in a tree.
type Diagnostic struct {
	Line    uint32 `json:"line"`   // 1-based
	Column  uint32 `json:"column"` // 1-based
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d:%d: %s", d.Line, d.Column, d.Message)
}

// Diagnostics returns up to limit ERROR/MISSING locations in pre-order.
// Children of an error node are not searched. A limit below 1 means no
// limit.
func (t *Tree) Diagnostics(limit int, opts ...WalkerOption) []Diagnostic {
	if t.root == nil || (t.release != nil && !t.hasError) {
		return nil
	}

	var diags []Diagnostic
	w := NewWalker(t.root, opts...)
	for w.Next() {
		n := w.Node()
		if !n.IsError() {
			continue
		}
		msg := "syntax error"
		if n.Kind() != "ERROR" {
			msg = fmt.Sprintf("missing %s", n.Kind())
		}
		diags = append(diags, Diagnostic{
			Line:    n.StartLine() + 1,
			Column:  n.StartColumn() + 1,
			Message: msg,
		})
		if limit > 0 && len(diags) >= limit {
			break
		}
		w.SkipChildren()
	}
	return diags
}
