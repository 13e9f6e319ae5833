// Package lint runs deterministic tree-sitter query rules over source
// files. Findings are cheap to compute and need no model call.
package lint

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentic-research/devsentinel/internal/lang"
	"github.com/agentic-research/devsentinel/internal/syntax"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/sirupsen/logrus"
)

// Finding is one rule violation. Line and Column are 1-based.
type Finding struct {
	Rule     string `json:"rule"`
	Line     int    `json:"line_number"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func (f Finding) String() string {
	return fmt.Sprintf("line %d: %s [%s]", f.Line, f.Message, f.Rule)
}

// Rule matches Query against a tree and reports the node bound to the
// "hit" capture. Check, when set, filters matches and may refine the
// message.
type Rule struct {
	ID        string
	Languages []string
	Query     string
	Message   string
	Severity  string
	Check     func(n *sitter.Node, source []byte) (msg string, ok bool)
}

type compiled struct {
	rule  Rule
	query *sitter.Query
}

// Linter holds rules compiled per language. Compiled queries are read-only
// and shared by concurrent Lint calls.
type Linter struct {
	registry *lang.Registry
	builders map[*lang.Config]*syntax.Builder
	rules    map[*lang.Config][]compiled
	log      logrus.FieldLogger
}

// New compiles rules for every language of reg they name. A rule whose
// query does not compile for a grammar is an error.
func New(reg *lang.Registry, rules []Rule, log logrus.FieldLogger) (*Linter, error) {
	if reg == nil {
		reg = lang.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Linter{
		registry: reg,
		builders: make(map[*lang.Config]*syntax.Builder),
		rules:    make(map[*lang.Config][]compiled),
		log:      log,
	}

	for _, cfg := range reg.Languages() {
		b, err := syntax.NewBuilder(cfg)
		if err != nil {
			l.log.WithField("language", cfg.ID()).WithError(err).Debug("no lint rules for language")
			continue
		}
		l.builders[cfg] = b
		for _, r := range rules {
			if !appliesTo(r, cfg.ID()) {
				continue
			}
			q, err := sitter.NewQuery([]byte(r.Query), cfg.Grammar())
			if err != nil {
				return nil, fmt.Errorf("rule %s for %s: %w", r.ID, cfg.ID(), err)
			}
			l.rules[cfg] = append(l.rules[cfg], compiled{rule: r, query: q})
		}
	}
	return l, nil
}

func appliesTo(r Rule, id string) bool {
	for _, l := range r.Languages {
		if l == id {
			return true
		}
	}
	return false
}

// Lint parses source as the language of path and returns findings sorted
// by position. Unsupported files yield nil.
func (l *Linter) Lint(ctx context.Context, source []byte, path string) ([]Finding, error) {
	cfg, _, ok := l.registry.ForPath(path)
	if !ok {
		return nil, nil
	}
	b, ok := l.builders[cfg]
	if !ok {
		return nil, nil
	}
	tree, err := b.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	findings := l.LintTree(tree, cfg)
	l.log.WithFields(logrus.Fields{"file": path, "findings": len(findings)}).Debug("lint complete")
	return findings, nil
}

// LintTree runs the rules for cfg over an already parsed tree. Trees not
// built by tree-sitter have nothing to query and yield nil.
func (l *Linter) LintTree(tree *syntax.Tree, cfg *lang.Config) []Finding {
	root := syntax.Unwrap(tree.Root())
	if root == nil {
		return nil
	}

	var out []Finding
	for _, c := range l.rules[cfg] {
		out = append(out, run(c, root, tree.Source())...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func run(c compiled, root *sitter.Node, source []byte) []Finding {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(c.query, root)

	var out []Finding
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, capture := range m.Captures {
			if c.query.CaptureNameForId(capture.Index) != "hit" {
				continue
			}
			msg := c.rule.Message
			if c.rule.Check != nil {
				refined, keep := c.rule.Check(capture.Node, source)
				if !keep {
					continue
				}
				if refined != "" {
					msg = refined
				}
			}
			p := capture.Node.StartPoint()
			out = append(out, Finding{
				Rule:     c.rule.ID,
				Line:     int(p.Row) + 1,
				Column:   int(p.Column) + 1,
				Message:  msg,
				Severity: c.rule.Severity,
			})
		}
	}
	return out
}
