package review

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Severity of a review comment.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityHint    Severity = "hint"
)

// ParseSeverity maps s to a known severity, falling back to warning.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityError, SeverityWarning, SeverityInfo, SeverityHint:
		return sev
	default:
		return SeverityWarning
	}
}

// CodeFix is one review comment anchored to a 1-based line.
type CodeFix struct {
	LineNumber int      `json:"line_number"`
	Suggestion string   `json:"suggestion"`
	FixedCode  string   `json:"fixed_code"`
	Severity   Severity `json:"severity"`
}

// Response is the result of a review or security scan.
type Response struct {
	Comments []CodeFix `json:"comments"`
}

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
	commentsAt = jp.MustParseString("$.comments[*]")
)

// CleanJSON strips markdown code fences models like to wrap JSON in.
func CleanJSON(raw string) string {
	text := strings.TrimSpace(raw)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseResponse extracts review comments from a model reply. The reply is
// parsed as is first, then again with fences stripped. ok is false when
// neither attempt yields a JSON object with a comments list; comments that
// lack a line number or suggestion are dropped.
func ParseResponse(raw string) (resp Response, ok bool) {
	resp.Comments = []CodeFix{}

	doc, err := oj.ParseString(raw)
	if err != nil {
		if doc, err = oj.ParseString(CleanJSON(raw)); err != nil {
			return resp, false
		}
	}
	obj, isObj := doc.(map[string]any)
	if !isObj {
		return resp, false
	}
	if _, has := obj["comments"].([]any); !has {
		return resp, false
	}

	for _, item := range commentsAt.Get(doc) {
		if fix, valid := toCodeFix(item); valid {
			resp.Comments = append(resp.Comments, fix)
		}
	}
	return resp, true
}

func toCodeFix(item any) (CodeFix, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return CodeFix{}, false
	}
	line, ok := toInt(m["line_number"])
	if !ok {
		return CodeFix{}, false
	}
	suggestion, ok := m["suggestion"].(string)
	if !ok {
		return CodeFix{}, false
	}
	fixed, _ := m["fixed_code"].(string)
	sev, _ := m["severity"].(string)
	return CodeFix{
		LineNumber: line,
		Suggestion: suggestion,
		FixedCode:  fixed,
		Severity:   ParseSeverity(sev),
	}, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

var secretPattern = regexp.MustCompile(`(gsk_|sk-)[A-Za-z0-9_-]{20,}`)

// RedactSecrets replaces anything that looks like an API key in msg.
func RedactSecrets(msg string) string {
	return secretPattern.ReplaceAllString(msg, "[REDACTED]")
}
