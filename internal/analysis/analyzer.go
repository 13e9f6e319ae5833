// Package analysis extracts named structure and per-function cyclomatic
// complexity from source files.
package analysis

import (
	"context"
	"errors"

	"github.com/agentic-research/devsentinel/internal/lang"
	"github.com/agentic-research/devsentinel/internal/syntax"
	"github.com/sirupsen/logrus"
)

// maxDiagnostics caps the syntax errors attached to a summary.
const maxDiagnostics = 5

// Analyzer binds a language registry to one Builder per language. It keeps
// no per-call state and is safe for concurrent use.
type Analyzer struct {
	registry *lang.Registry
	builders map[*lang.Config]*syntax.Builder
	budget   int
	log      logrus.FieldLogger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRegistry replaces the built-in language registry.
func WithRegistry(r *lang.Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithLogger sets the logger. nil keeps the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// WithBudget lowers the traversal step budget. It cannot be raised above
// syntax.DefaultBudget.
func WithBudget(steps int) Option {
	return func(a *Analyzer) {
		if steps > 0 && steps <= syntax.DefaultBudget {
			a.budget = steps
		}
	}
}

// New returns an analyzer. Languages whose config carries no grammar are
// still recognized but report a parse error when used.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: lang.Default(),
		budget:   syntax.DefaultBudget,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.builders = make(map[*lang.Config]*syntax.Builder)
	for _, cfg := range a.registry.Languages() {
		b, err := syntax.NewBuilder(cfg)
		if err != nil {
			a.log.WithField("language", cfg.ID()).WithError(err).Debug("no tree builder for language")
			continue
		}
		a.builders[cfg] = b
	}
	return a
}

// Registry returns the registry the analyzer resolves languages with.
func (a *Analyzer) Registry() *lang.Registry {
	return a.registry
}

// parsed is one file resolved to a language and, when that worked, a tree.
type parsed struct {
	path string
	ext  string
	cfg  *lang.Config
	tree *syntax.Tree
	err  error
}

func (p *parsed) close() {
	if p.tree != nil {
		p.tree.Close()
	}
}

func (a *Analyzer) parse(ctx context.Context, source []byte, path string) *parsed {
	cfg, ext, ok := a.registry.ForPath(path)
	p := &parsed{path: path, ext: ext}
	if !ok {
		return p
	}
	p.cfg = cfg

	b, ok := a.builders[cfg]
	if !ok {
		p.err = &syntax.ParseError{Language: cfg.ID(), Err: syntax.ErrNoGrammar}
	} else {
		p.tree, p.err = b.Parse(ctx, source)
	}
	if p.err != nil {
		a.log.WithFields(logrus.Fields{"file": path, "language": cfg.ID()}).
			WithError(p.err).Error("AST parse error")
	}
	return p
}

// ExtractStructure parses source and reports its function, method and class
// names. It never fails; every outcome is a Summary kind.
func (a *Analyzer) ExtractStructure(ctx context.Context, source []byte, path string) Summary {
	p := a.parse(ctx, source, path)
	defer p.close()
	return a.summarize(p)
}

// ComputeComplexity parses source and scores every function-like node.
// Unsupported and unparsable files yield an empty report.
func (a *Analyzer) ComputeComplexity(ctx context.Context, source []byte, path string) Report {
	p := a.parse(ctx, source, path)
	defer p.close()
	return a.report(p)
}

// Analyze parses source once and runs both extractors over the tree.
func (a *Analyzer) Analyze(ctx context.Context, source []byte, path string) (Summary, Report) {
	p := a.parse(ctx, source, path)
	defer p.close()
	return a.summarize(p), a.report(p)
}

func (a *Analyzer) summarize(p *parsed) Summary {
	switch {
	case p.cfg == nil:
		a.log.WithField("file", p.path).Infof("AST parsing not available for '%s' files", p.ext)
		return Summary{Kind: SummaryUnsupported, Extension: p.ext}
	case p.err != nil:
		return Summary{
			Kind:      SummaryParseError,
			Extension: p.ext,
			Language:  p.cfg.DisplayName(),
			Error:     parseMessage(p.err),
		}
	}
	s := a.Extract(p.tree, p.cfg, p.path)
	s.Extension = p.ext
	return s
}

func (a *Analyzer) report(p *parsed) Report {
	switch {
	case p.cfg == nil:
		a.log.WithField("file", p.path).Warnf("language not supported for complexity analysis: %s", p.ext)
		return Report{Functions: []FunctionRecord{}, Threshold: ComplexityThreshold}
	case p.err != nil:
		return Report{
			Functions: []FunctionRecord{},
			Threshold: ComplexityThreshold,
			Language:  p.cfg.DisplayName(),
			Error:     parseMessage(p.err),
		}
	}
	return a.Compute(p.tree, p.cfg, p.path)
}

func parseMessage(err error) string {
	var pe *syntax.ParseError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

var std = New()

// ExtractStructure runs the default analyzer with a background context.
func ExtractStructure(source []byte, path string) Summary {
	return std.ExtractStructure(context.Background(), source, path)
}

// ComputeComplexity runs the default analyzer and returns only the records.
func ComputeComplexity(source []byte, path string) []FunctionRecord {
	return std.ComputeComplexity(context.Background(), source, path).Functions
}
