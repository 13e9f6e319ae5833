package lint

import (
	sitter "github.com/smacker/go-tree-sitter"
)

var ecma = []string{"javascript", "jsx", "typescript", "tsx"}

// DefaultRules is the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "go-nil-slice",
			Languages: []string{"go"},
			Query: `
				(var_declaration
					(var_spec
						name: (identifier)
						type: (slice_type)
					) @hit
				)
			`,
			Message:  "Nil slice declaration. Consider 'make([]T, 0)' for JSON compatibility.",
			Severity: "info",
			Check: func(n *sitter.Node, _ []byte) (string, bool) {
				for i := 0; i < int(n.ChildCount()); i++ {
					if n.FieldNameForChild(i) == "value" {
						return "", false
					}
				}
				return "", true
			},
		},
		{
			ID:        "py-bare-except",
			Languages: []string{"python"},
			Query:     `(except_clause) @hit`,
			Message:   "Bare 'except:' catches everything, including KeyboardInterrupt. Name the exception type.",
			Severity:  "warning",
			Check: func(n *sitter.Node, _ []byte) (string, bool) {
				for i := 0; i < int(n.NamedChildCount()); i++ {
					switch n.NamedChild(i).Type() {
					case "comment":
						continue
					case "block":
						return "", true
					default:
						return "", false
					}
				}
				return "", true
			},
		},
		{
			ID:        "py-eval",
			Languages: []string{"python"},
			Query:     `(call function: (identifier) @hit)`,
			Severity:  "error",
			Check:     dynamicCode("eval", "exec"),
		},
		{
			ID:        "js-eval",
			Languages: ecma,
			Query:     `(call_expression function: (identifier) @hit)`,
			Severity:  "error",
			Check:     dynamicCode("eval"),
		},
	}
}

// dynamicCode keeps calls to the named builtins.
func dynamicCode(names ...string) func(*sitter.Node, []byte) (string, bool) {
	return func(n *sitter.Node, source []byte) (string, bool) {
		name := n.Content(source)
		for _, want := range names {
			if name == want {
				return "Call to " + name + "() runs arbitrary code. Avoid it for untrusted input.", true
			}
		}
		return "", false
	}
}
