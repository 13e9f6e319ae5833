package syntax

import (
	"context"

	"github.com/agentic-research/devsentinel/internal/lang"
	sitter "github.com/smacker/go-tree-sitter"
)

// Builder parses source buffers for one language. It holds only the
// immutable grammar; each Parse call gets its own tree-sitter parser, so a
// Builder can be shared across goroutines.
type Builder struct {
	id      string
	grammar *sitter.Language
}

// NewBuilder returns a builder for cfg.
func NewBuilder(cfg *lang.Config) (*Builder, error) {
	if cfg == nil || cfg.Grammar() == nil {
		return nil, ErrNoGrammar
	}
	return &Builder{id: cfg.ID(), grammar: cfg.Grammar()}, nil
}

// Language returns the id of the language the builder parses.
func (b *Builder) Language() string {
	return b.id
}

// Parse builds a fresh tree for source. The caller must Close the tree.
func (b *Builder) Parse(ctx context.Context, source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(b.grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Language: b.id, Err: err}
	}
	if tree == nil {
		return nil, &ParseError{Language: b.id, Err: ErrParseFailed}
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, &ParseError{Language: b.id, Err: ErrParseFailed}
	}

	return &Tree{
		root:     Wrap(root),
		source:   source,
		hasError: root.HasError(),
		release:  tree.Close,
	}, nil
}
