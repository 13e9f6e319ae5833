package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// AnonymousPlaceholder names function-like nodes that have neither a name
// field nor a binding to take a name from.
const AnonymousPlaceholder = "<anonymous>"

// Definition is the mutable description used to build a Config.
// Slices are copied into sets by New, so a Definition may be reused.
type Definition struct {
	ID          string
	DisplayName string
	Extensions  []string
	Grammar     *sitter.Language

	// Functions are node kinds reported as functions, methods or classes.
	Functions []string
	// Branches are node kinds that add one to cyclomatic complexity.
	Branches []string
	// Boundaries are node kinds the complexity count never descends into.
	Boundaries []string

	// LogicalKinds are branch kinds that only count when the text of their
	// "operator" field is one of LogicalOperators.
	LogicalKinds     []string
	LogicalOperators []string

	// Closures are function kinds that may borrow a name from the binding
	// they are assigned to.
	Closures []string
	// Bindings maps a parent node kind to the field holding the bound name,
	// e.g. variable_declarator -> name.
	Bindings map[string]string
	// Lists are node kinds that group the values of a multi-assignment,
	// e.g. Go's expression_list. A closure inside one takes the bound name
	// at the same position.
	Lists []string
	// Placeholders overrides ClosurePlaceholder for individual closure
	// kinds.
	Placeholders       map[string]string
	ClosurePlaceholder string
}

type set map[string]struct{}

func newSet(kinds []string) set {
	s := make(set, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s set) has(kind string) bool {
	_, ok := s[kind]
	return ok
}

// Config is the immutable per-language node-kind table. All fields are
// unexported so a Config handed out by a Registry can be shared freely
// between goroutines.
type Config struct {
	id          string
	displayName string
	extensions  []string
	grammar     *sitter.Language

	functions  set
	branches   set
	boundaries set

	logicalKinds     set
	logicalOperators set

	closures           set
	bindings           map[string]string
	lists              set
	placeholders       map[string]string
	closurePlaceholder string
}

// New freezes a Definition into a Config.
func New(def Definition) *Config {
	bindings := make(map[string]string, len(def.Bindings))
	for k, v := range def.Bindings {
		bindings[k] = v
	}
	placeholders := make(map[string]string, len(def.Placeholders))
	for k, v := range def.Placeholders {
		placeholders[k] = v
	}
	placeholder := def.ClosurePlaceholder
	if placeholder == "" {
		placeholder = AnonymousPlaceholder
	}
	exts := make([]string, len(def.Extensions))
	for i, e := range def.Extensions {
		exts[i] = normalizeExt(e)
	}
	return &Config{
		id:                 def.ID,
		displayName:        def.DisplayName,
		extensions:         exts,
		grammar:            def.Grammar,
		functions:          newSet(def.Functions),
		branches:           newSet(def.Branches),
		boundaries:         newSet(def.Boundaries),
		logicalKinds:       newSet(def.LogicalKinds),
		logicalOperators:   newSet(def.LogicalOperators),
		closures:           newSet(def.Closures),
		bindings:           bindings,
		lists:              newSet(def.Lists),
		placeholders:       placeholders,
		closurePlaceholder: placeholder,
	}
}

func (c *Config) ID() string { return c.id }
func (c *Config) DisplayName() string { return c.displayName }
func (c *Config) Grammar() *sitter.Language { return c.grammar }
func (c *Config) IsFunction(kind string) bool { return c.functions.has(kind) }
func (c *Config) IsBranch(kind string) bool { return c.branches.has(kind) }
func (c *Config) IsBoundary(kind string) bool { return c.boundaries.has(kind) }
func (c *Config) IsClosure(kind string) bool { return c.closures.has(kind) }

// Extensions returns a copy of the lower-cased extensions the config was
// registered under.
func (c *Config) Extensions() []string {
	out := make([]string, len(c.extensions))
	copy(out, c.extensions)
	return out
}

// IsLogical reports whether a branch kind needs its operator checked
// before it counts.
func (c *Config) IsLogical(kind string) bool { return c.logicalKinds.has(kind) }

// CountsOperator reports whether op is a short-circuit operator for this
// language.
func (c *Config) CountsOperator(op string) bool { return c.logicalOperators.has(op) }

// BindingField returns the field of a parent node that names a closure
// assigned to it.
func (c *Config) BindingField(parentKind string) (string, bool) {
	f, ok := c.bindings[parentKind]
	return f, ok
}

// IsList reports whether kind groups the operands of a multi-assignment.
func (c *Config) IsList(kind string) bool { return c.lists.has(kind) }

// ClosurePlaceholder is the name given to unbound closures.
func (c *Config) ClosurePlaceholder() string { return c.closurePlaceholder }

// PlaceholderFor is the name given to an unbound closure of kind.
func (c *Config) PlaceholderFor(kind string) string {
	if p, ok := c.placeholders[kind]; ok {
		return p
	}
	return c.closurePlaceholder
}
