package analysis

import (
	"fmt"
	"strings"

	"github.com/agentic-research/devsentinel/internal/syntax"
)

// ComplexityThreshold is the score above which a function is flagged.
const ComplexityThreshold = 10

// FunctionRecord is the complexity result for one function-like node.
type FunctionRecord struct {
	Name       string `json:"name"`
	LineNumber int    `json:"line_number"`
	Complexity int    `json:"complexity"`
	IsComplex  bool   `json:"is_complex"`
}

// NewFunctionRecord builds a record and derives IsComplex.
func NewFunctionRecord(name string, line, complexity int) FunctionRecord {
	return FunctionRecord{
		Name:       name,
		LineNumber: line,
		Complexity: complexity,
		IsComplex:  complexity > ComplexityThreshold,
	}
}

// SummaryKind tags the outcome of structure extraction.
type SummaryKind int

const (
	// SummaryFunctions means at least one function-like node was found.
	SummaryFunctions SummaryKind = iota
	// SummaryRootScript means the file parsed but holds no functions.
	SummaryRootScript
	// SummaryUnsupported means no language is registered for the extension;
	// callers should treat the file as plain text.
	SummaryUnsupported
	// SummaryParseError means the file could not be parsed.
	SummaryParseError
)

var summaryKindNames = [...]string{
	SummaryFunctions:   "functions",
	SummaryRootScript:  "root_script",
	SummaryUnsupported: "unsupported",
	SummaryParseError:  "parse_error",
}

func (k SummaryKind) String() string {
	if k < 0 || int(k) >= len(summaryKindNames) {
		return fmt.Sprintf("SummaryKind(%d)", int(k))
	}
	return summaryKindNames[k]
}

// MarshalText encodes the kind by name.
func (k SummaryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Summary is the tagged result of ExtractStructure.
type Summary struct {
	Kind      SummaryKind `json:"kind"`
	Names     []string    `json:"names,omitempty"`
	Language  string      `json:"language,omitempty"`
	Extension string      `json:"extension"`
	Error     string      `json:"error,omitempty"`
	// Truncated is set when the traversal budget ran out; Names holds what
	// was found before that.
	Truncated   bool                `json:"truncated,omitempty"`
	Diagnostics []syntax.Diagnostic `json:"diagnostics,omitempty"`
}

// String renders the summary the way it is interpolated into prompts.
func (s Summary) String() string {
	switch s.Kind {
	case SummaryFunctions:
		out := "Found Functions: " + strings.Join(s.Names, ", ")
		if s.Truncated {
			out += " (truncated)"
		}
		return out
	case SummaryRootScript:
		if s.Truncated {
			return "Root Level Script (truncated)"
		}
		return "Root Level Script"
	case SummaryUnsupported:
		return fmt.Sprintf("AST parsing not available for '%s' files. Reviewing as plain text.", s.Extension)
	case SummaryParseError:
		return "AST Parse Error: " + s.Error
	default:
		return s.Kind.String()
	}
}

// Report is the result of ComputeComplexity.
type Report struct {
	Functions []FunctionRecord `json:"functions"`
	Threshold int              `json:"threshold"`
	Language  string           `json:"language,omitempty"`
	// Truncated is set when any traversal ran out of budget.
	Truncated bool `json:"truncated,omitempty"`
	// Omitted counts functions dropped because their computation failed.
	Omitted int    `json:"omitted,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Complex returns the records above the threshold.
func (r Report) Complex() []FunctionRecord {
	var out []FunctionRecord
	for _, f := range r.Functions {
		if f.IsComplex {
			out = append(out, f)
		}
	}
	return out
}
