package lang

import (
	"path/filepath"
	"strings"

	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Registry maps file extensions to language configs. It is filled once by
// NewRegistry and never written again, so lookups need no locking.
type Registry struct {
	byExt map[string]*Config
	langs []*Config
}

// NewRegistry builds a registry from definitions. A later definition that
// claims an extension already taken wins.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{byExt: make(map[string]*Config)}
	for _, def := range defs {
		cfg := New(def)
		r.langs = append(r.langs, cfg)
		for _, ext := range cfg.extensions {
			r.byExt[ext] = cfg
		}
	}
	return r
}

// Lookup returns the config registered for an extension. The match is
// case-insensitive and the leading dot is optional. An unknown extension is
// a normal outcome and reported with ok=false.
func (r *Registry) Lookup(ext string) (*Config, bool) {
	cfg, ok := r.byExt[normalizeExt(ext)]
	return cfg, ok
}

// ForPath resolves the config for a file path by its extension. The
// normalized extension is returned even when no config matches so callers
// can report it.
func (r *Registry) ForPath(path string) (cfg *Config, ext string, ok bool) {
	ext = normalizeExt(filepath.Ext(path))
	cfg, ok = r.byExt[ext]
	return cfg, ext, ok
}

// Languages returns the registered configs in registration order.
func (r *Registry) Languages() []*Config {
	out := make([]*Config, len(r.langs))
	copy(out, r.langs)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var defaultRegistry = NewRegistry(Builtin()...)

// Default returns the process-wide registry of built-in languages.
func Default() *Registry {
	return defaultRegistry
}

// Lookup is Default().Lookup.
func Lookup(ext string) (*Config, bool) {
	return defaultRegistry.Lookup(ext)
}

var (
	ecmaFunctions = []string{
		"function_declaration", "generator_function_declaration", "function_expression",
		"generator_function", "arrow_function", "class_declaration", "method_definition",
	}
	ecmaBoundaries = []string{
		"function_declaration", "generator_function_declaration", "function_expression",
		"generator_function", "arrow_function", "method_definition",
	}
	ecmaBranches   = []string{
		"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "try_statement", "catch_clause", "switch_case",
		"ternary_expression", "binary_expression",
	}
	shortCircuit = []string{"&&", "||"}
)

func ecmaDefinition(id, display string, exts []string) Definition {
	return Definition{
		ID:                 id,
		DisplayName:        display,
		Extensions:         exts,
		Functions:          ecmaFunctions,
		Branches:           ecmaBranches,
		Boundaries:         ecmaBoundaries,
		LogicalKinds:       []string{"binary_expression"},
		LogicalOperators:   shortCircuit,
		Closures:           []string{"arrow_function", "function_expression", "generator_function"},
		Bindings:           map[string]string{"variable_declarator": "name"},
		Placeholders:       map[string]string{"function_expression": AnonymousPlaceholder, "generator_function": AnonymousPlaceholder},
		ClosurePlaceholder: "<anonymous arrow>",
	}
}

// Builtin returns the definitions of every language shipped with the
// analyzer.
func Builtin() []Definition {
	js := ecmaDefinition("javascript", "JavaScript", []string{".js", ".mjs", ".cjs"})
	js.Grammar = javascript.GetLanguage()

	jsx := ecmaDefinition("jsx", "JavaScript (JSX)", []string{".jsx"})
	jsx.Grammar = javascript.GetLanguage()

	ts := ecmaDefinition("typescript", "TypeScript", []string{".ts", ".mts", ".cts"})
	ts.Grammar = typescript.GetLanguage()

	tsxDef := ecmaDefinition("tsx", "TypeScript (TSX)", []string{".tsx"})
	tsxDef.Grammar = tsx.GetLanguage()

	return []Definition{
		{
			ID:          "python",
			DisplayName: "Python",
			Extensions:  []string{".py", ".pyi", ".pyw"},
			Grammar:     python.GetLanguage(),
			Functions:   []string{"function_definition", "class_definition"},
			Branches: []string{
				"if_statement", "elif_clause", "for_statement", "while_statement",
				"try_statement", "except_clause", "with_statement",
				"conditional_expression", "boolean_operator",
			},
			Boundaries: []string{"function_definition"},
		},
		js,
		jsx,
		ts,
		tsxDef,
		{
			ID:          "go",
			DisplayName: "Go",
			Extensions:  []string{".go"},
			Grammar:     golang.GetLanguage(),
			Functions:   []string{"function_declaration", "method_declaration", "func_literal"},
			Branches: []string{
				"if_statement", "for_statement", "expression_case", "type_case",
				"communication_case", "binary_expression",
			},
			Boundaries:       []string{"function_declaration", "method_declaration", "func_literal"},
			LogicalKinds:     []string{"binary_expression"},
			LogicalOperators: shortCircuit,
			Closures:         []string{"func_literal"},
			Bindings: map[string]string{
				"short_var_declaration": "left",
				"var_spec":              "name",
				"assignment_statement":  "left",
			},
			Lists:              []string{"expression_list"},
			ClosurePlaceholder: "<func literal>",
		},
	}
}
