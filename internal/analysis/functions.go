package analysis

import (
	"fmt"

	"github.com/agentic-research/devsentinel/internal/lang"
	"github.com/agentic-research/devsentinel/internal/syntax"
	"github.com/sirupsen/logrus"
)

func (a *Analyzer) walker(root syntax.Node, path string, budget int) *syntax.Walker {
	return syntax.NewWalker(root, syntax.WithBudget(budget), syntax.WithLogger(a.log, path))
}

// visitFunctions calls fn for every function-like node in pre-order, so an
// enclosing declaration is always seen before the ones nested in it. fn
// returns false to stop the walk. The result reports budget truncation.
func (a *Analyzer) visitFunctions(tree *syntax.Tree, cfg *lang.Config, path string, fn func(syntax.Node) bool) bool {
	w := a.walker(tree.Root(), path, a.budget)
	for w.Next() {
		n := w.Node()
		if !cfg.IsFunction(n.Kind()) {
			continue
		}
		if !fn(n) {
			return true
		}
	}
	return w.Truncated()
}

// resolveName picks the display name of a function-like node: its "name"
// field, else the name of the binding a closure is assigned to, else a
// placeholder.
func resolveName(tree *syntax.Tree, cfg *lang.Config, n syntax.Node) string {
	if name := n.ChildByField("name"); name != nil {
		return tree.Text(name)
	}
	if !cfg.IsClosure(n.Kind()) {
		return lang.AnonymousPlaceholder
	}
	if bound := boundName(cfg, n); bound != nil {
		return tree.Text(bound)
	}
	return cfg.PlaceholderFor(n.Kind())
}

// boundName finds the node naming the binding closure n is assigned to.
// When n sits in a value list, as in "a, b := f, func() {}", the name at
// the same position is used.
func boundName(cfg *lang.Config, n syntax.Node) syntax.Node {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	pos := 0
	if cfg.IsList(parent.Kind()) {
		pos = operandIndex(parent, n)
		if parent = parent.Parent(); parent == nil {
			return nil
		}
	}
	field, ok := cfg.BindingField(parent.Kind())
	if !ok {
		return nil
	}
	bound := parent.ChildByField(field)
	if bound == nil {
		return nil
	}
	if cfg.IsList(bound.Kind()) {
		return nthOperand(bound, pos)
	}
	if pos == 0 {
		return bound
	}
	// Repeated fields such as Go's var_spec names are siblings of one kind.
	return nthOfKind(parent, bound.Kind(), pos)
}

func isSeparator(n syntax.Node) bool {
	switch n.Kind() {
	case ",", "comment":
		return true
	}
	return false
}

func sameNode(a, b syntax.Node) bool {
	return a.Kind() == b.Kind() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func operandIndex(list, n syntax.Node) int {
	pos := 0
	for i := 0; i < list.ChildCount(); i++ {
		c := list.Child(i)
		if c == nil || isSeparator(c) {
			continue
		}
		if sameNode(c, n) {
			return pos
		}
		pos++
	}
	return -1
}

func nthOperand(list syntax.Node, pos int) syntax.Node {
	if pos < 0 {
		return nil
	}
	for i := 0; i < list.ChildCount(); i++ {
		c := list.Child(i)
		if c == nil || isSeparator(c) {
			continue
		}
		if pos == 0 {
			return c
		}
		pos--
	}
	return nil
}

func nthOfKind(parent syntax.Node, kind string, pos int) syntax.Node {
	if pos < 0 {
		return nil
	}
	for i := 0; i < parent.ChildCount(); i++ {
		c := parent.Child(i)
		if c == nil || c.Kind() != kind {
			continue
		}
		if pos == 0 {
			return c
		}
		pos--
	}
	return nil
}

// recovered runs fn and turns a panic into an error. Node implementations
// may panic on shapes a grammar was not expected to produce.
func recovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected node shape: %v", r)
		}
	}()
	fn()
	return nil
}

// Extract lists the names of the function-like nodes in tree.
func (a *Analyzer) Extract(tree *syntax.Tree, cfg *lang.Config, path string) Summary {
	s := Summary{Language: cfg.DisplayName()}

	s.Truncated = a.visitFunctions(tree, cfg, path, func(n syntax.Node) bool {
		var name string
		if err := recovered(func() { name = resolveName(tree, cfg, n) }); err != nil {
			a.log.WithFields(logrus.Fields{"file": path, "line": n.StartLine() + 1}).
				WithError(err).Error("skipping function name")
			return true
		}
		s.Names = append(s.Names, name)
		return true
	})

	if len(s.Names) > 0 {
		s.Kind = SummaryFunctions
	} else {
		s.Kind = SummaryRootScript
	}
	if tree.HasError() {
		s.Diagnostics = tree.Diagnostics(maxDiagnostics, syntax.WithBudget(a.budget), syntax.WithLogger(a.log, path))
	}

	a.log.WithFields(logrus.Fields{"file": path, "summary": s.String()}).Debug("AST parsing result")
	return s
}

// Compute scores every function-like node in tree. Inner branch counts
// share one step budget across the whole file, so total work stays bounded
// by twice the budget however the functions nest.
func (a *Analyzer) Compute(tree *syntax.Tree, cfg *lang.Config, path string) Report {
	r := Report{
		Functions: []FunctionRecord{},
		Threshold: ComplexityThreshold,
		Language:  cfg.DisplayName(),
	}
	remaining := a.budget

	outerTruncated := a.visitFunctions(tree, cfg, path, func(n syntax.Node) bool {
		if remaining <= 0 {
			r.Truncated = true
			return false
		}

		var (
			rec   FunctionRecord
			steps int
			cut   bool
		)
		err := recovered(func() {
			rec.Name = resolveName(tree, cfg, n)
			rec.LineNumber = int(n.StartLine()) + 1
			var count int
			count, steps, cut = a.countBranches(tree, cfg, n, path, remaining)
			rec = NewFunctionRecord(rec.Name, rec.LineNumber, 1+count)
		})
		remaining -= steps
		if err != nil {
			r.Omitted++
			a.log.WithFields(logrus.Fields{
				"file":     path,
				"function": rec.Name,
				"line":     rec.LineNumber,
			}).WithError(err).Error("error calculating complexity")
			return true
		}
		if cut {
			r.Truncated = true
		}

		a.log.WithFields(logrus.Fields{
			"file":       path,
			"function":   rec.Name,
			"line":       rec.LineNumber,
			"complexity": rec.Complexity,
		}).Debug("analyzed function")
		r.Functions = append(r.Functions, rec)
		return true
	})
	if outerTruncated {
		r.Truncated = true
	}

	a.log.WithFields(logrus.Fields{"file": path, "functions": len(r.Functions)}).Debug("completed complexity analysis")
	return r
}

// countBranches counts branch-like descendants of fn without entering
// nested boundaries. Logical kinds count only for short-circuit operators.
// It returns the count, the steps spent and whether the budget ran out.
func (a *Analyzer) countBranches(tree *syntax.Tree, cfg *lang.Config, fn syntax.Node, path string, budget int) (int, int, bool) {
	w := a.walker(fn, path, budget)
	count := 0
	if !w.Next() {
		return 0, w.Steps(), w.Truncated()
	}
	for w.Next() {
		n := w.Node()
		kind := n.Kind()
		if cfg.IsBoundary(kind) {
			w.SkipChildren()
			continue
		}
		if !cfg.IsBranch(kind) {
			continue
		}
		if cfg.IsLogical(kind) {
			op := n.ChildByField("operator")
			if op != nil && cfg.CountsOperator(tree.Text(op)) {
				count++
			}
			continue
		}
		count++
	}
	return count, w.Steps(), w.Truncated()
}
