package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/agentic-research/devsentinel/internal/lang"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestAnalyzer(t *testing.T, opts ...Option) (*Analyzer, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(append([]Option{WithLogger(logger)}, opts...)...), hook
}

func TestPythonSingleFunction(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("def foo():\n    if x:\n        pass\n    return 1")

	s := a.ExtractStructure(context.Background(), src, "app/main.py")
	assert.Equal(t, SummaryFunctions, s.Kind)
	assert.Equal(t, []string{"foo"}, s.Names)
	assert.Equal(t, "Python", s.Language)
	assert.Equal(t, "Found Functions: foo", s.String())

	r := a.ComputeComplexity(context.Background(), src, "app/main.py")
	require.Len(t, r.Functions, 1)
	assert.Equal(t, FunctionRecord{Name: "foo", LineNumber: 1, Complexity: 2, IsComplex: false}, r.Functions[0])
	assert.Equal(t, ComplexityThreshold, r.Threshold)
	assert.False(t, r.Truncated)
}

func TestNestedFunctionsScoredSeparately(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("function outer() { function inner() { if (a) {} } if (b) {} }")

	s := a.ExtractStructure(context.Background(), src, "nested.js")
	assert.Equal(t, []string{"outer", "inner"}, s.Names)

	r := a.ComputeComplexity(context.Background(), src, "nested.js")
	assert.Equal(t, []FunctionRecord{
		{Name: "outer", LineNumber: 1, Complexity: 2},
		{Name: "inner", LineNumber: 1, Complexity: 2},
	}, r.Functions)
}

func TestPythonNestedAndClasses(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`def outer():
    def inner():
        if a:
            pass
        while b:
            pass
    for x in y:
        pass

class Service:
    def run(self):
        try:
            pass
        except ValueError:
            pass
`)
	s := a.ExtractStructure(context.Background(), src, "svc.py")
	assert.Equal(t, []string{"outer", "inner", "Service", "run"}, s.Names)

	r := a.ComputeComplexity(context.Background(), src, "svc.py")
	assert.Equal(t, []FunctionRecord{
		{Name: "outer", LineNumber: 1, Complexity: 2},
		{Name: "inner", LineNumber: 2, Complexity: 3},
		{Name: "Service", LineNumber: 10, Complexity: 1},
		{Name: "run", LineNumber: 11, Complexity: 3},
	}, r.Functions)
}

func TestPythonBooleanAndElif(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`def check(a, b):
    return a and b or a + b

def grade(n):
    if n > 90:
        return "A"
    elif n > 80:
        return "B"
    return "C" if n > 50 else "F"
`)
	r := a.ComputeComplexity(context.Background(), src, "grade.py")
	assert.Equal(t, []FunctionRecord{
		{Name: "check", LineNumber: 1, Complexity: 3},
		{Name: "grade", LineNumber: 4, Complexity: 4},
	}, r.Functions)
}

func TestArrowNaming(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`const add = (a, b) => a + b;
const both = (a, b) => a && b;
items.map((x) => x || fallback);
`)
	s := a.ExtractStructure(context.Background(), src, "arrows.js")
	assert.Equal(t, []string{"add", "both", "<anonymous arrow>"}, s.Names)

	r := a.ComputeComplexity(context.Background(), src, "arrows.js")
	assert.Equal(t, []FunctionRecord{
		{Name: "add", LineNumber: 1, Complexity: 1},
		{Name: "both", LineNumber: 2, Complexity: 2},
		{Name: "<anonymous arrow>", LineNumber: 3, Complexity: 2},
	}, r.Functions)
}

func TestFunctionExpressionsAreBoundaries(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`function run(items) {
  items.forEach(function (x) {
    if (x) {}
  });
  const named = function inner() {};
  const bound = function () {};
  if (items) {}
}
function* gen() {
  yield 1;
}
`)
	r := a.ComputeComplexity(context.Background(), src, "run.js")
	assert.Equal(t, []FunctionRecord{
		{Name: "run", LineNumber: 1, Complexity: 2},
		{Name: "<anonymous>", LineNumber: 2, Complexity: 2},
		{Name: "inner", LineNumber: 5, Complexity: 1},
		{Name: "bound", LineNumber: 6, Complexity: 1},
		{Name: "gen", LineNumber: 9, Complexity: 1},
	}, r.Functions)
}

func TestClassMethods(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`class Greeter {
  greet(name) {
    if (!name) {
      return "hi";
    }
    return name ? "hi " + name : "hi";
  }
}
`)
	r := a.ComputeComplexity(context.Background(), src, "greeter.jsx")
	assert.Equal(t, []FunctionRecord{
		{Name: "Greeter", LineNumber: 1, Complexity: 1},
		{Name: "greet", LineNumber: 2, Complexity: 3},
	}, r.Functions)
}

func TestTypeScriptOperators(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`function clamp(x: number): number {
  if (x > 10 && x < 20) {
    return x;
  }
  return x > 0 ? x : 0;
}

function pick(a?: string): string {
  return a ?? "x";
}
`)
	r := a.ComputeComplexity(context.Background(), src, "clamp.TS")
	assert.Equal(t, []FunctionRecord{
		{Name: "clamp", LineNumber: 1, Complexity: 4},
		{Name: "pick", LineNumber: 8, Complexity: 1},
	}, r.Functions)
}

func TestTSXComponent(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("export const App = ({ on }: Props) => <div>{on ? <A /> : <B />}</div>;\n")

	s := a.ExtractStructure(context.Background(), src, "App.tsx")
	assert.Equal(t, []string{"App"}, s.Names)
	assert.Equal(t, "TypeScript (TSX)", s.Language)

	r := a.ComputeComplexity(context.Background(), src, "App.tsx")
	assert.Equal(t, []FunctionRecord{{Name: "App", LineNumber: 1, Complexity: 2}}, r.Functions)
}

func TestGoFunctions(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`package main

func classify(a, b bool, n int) int {
	if a && b {
		return 1
	}
	for i := 0; i < n; i++ {
	}
	switch n {
	case 1:
	case 2:
	default:
	}
	helper := func() {
		if a || b {
		}
	}
	helper()
	return 0
}

func (s *Server) Run() error { return nil }
`)
	s := a.ExtractStructure(context.Background(), src, "main.go")
	assert.Equal(t, []string{"classify", "helper", "Run"}, s.Names)

	r := a.ComputeComplexity(context.Background(), src, "main.go")
	assert.Equal(t, []FunctionRecord{
		{Name: "classify", LineNumber: 3, Complexity: 6},
		{Name: "helper", LineNumber: 14, Complexity: 2},
		{Name: "Run", LineNumber: 22, Complexity: 1},
	}, r.Functions)
}

func TestGoClosureNaming(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte(`package main

var top = func() {}

func outer() {
	handler := func() {}
	var cb = func() {}
	n, pick := 1, func() int { return 0 }
	var first, second = func() {}, func() {}
	s.hook = func() {}
	go func() {}()
	_, _, _, _, _ = handler, cb, n, pick, first
}

func wrap() func() {
	return func() {}
}
`)
	s := a.ExtractStructure(context.Background(), src, "p.go")
	assert.Equal(t, []string{
		"top", "outer", "handler", "cb", "pick", "first", "second",
		"s.hook", "<func literal>", "wrap", "<func literal>",
	}, s.Names)
}

func TestEmptyFiles(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	for _, cfg := range a.Registry().Languages() {
		ext := cfg.Extensions()[0]
		t.Run(ext, func(t *testing.T) {
			src := []byte{}
			if cfg.ID() == "go" {
				src = []byte("package empty\n")
			}
			s := a.ExtractStructure(context.Background(), src, "empty"+ext)
			assert.Equal(t, SummaryRootScript, s.Kind)
			assert.Equal(t, "Root Level Script", s.String())

			r := a.ComputeComplexity(context.Background(), src, "empty"+ext)
			assert.NotNil(t, r.Functions)
			assert.Empty(t, r.Functions)
		})
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("def foo\n  1\nend\n")

	s := a.ExtractStructure(context.Background(), src, "lib/foo.rb")
	assert.Equal(t, SummaryUnsupported, s.Kind)
	assert.Equal(t, ".rb", s.Extension)
	assert.Equal(t, "AST parsing not available for '.rb' files. Reviewing as plain text.", s.String())

	r := a.ComputeComplexity(context.Background(), src, "lib/foo.rb")
	assert.Empty(t, r.Functions)
	assert.Equal(t, ComplexityThreshold, r.Threshold)
}

func TestThresholdBoundary(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	build := func(ifs int) []byte {
		var b strings.Builder
		b.WriteString("def f(x):\n")
		for i := 0; i < ifs; i++ {
			fmt.Fprintf(&b, "    if x == %d:\n        return %d\n", i, i)
		}
		b.WriteString("    return -1\n")
		return []byte(b.String())
	}

	r := a.ComputeComplexity(context.Background(), build(9), "f.py")
	require.Len(t, r.Functions, 1)
	assert.Equal(t, 10, r.Functions[0].Complexity)
	assert.False(t, r.Functions[0].IsComplex)
	assert.Empty(t, r.Complex())

	r = a.ComputeComplexity(context.Background(), build(10), "f.py")
	require.Len(t, r.Functions, 1)
	assert.Equal(t, 11, r.Functions[0].Complexity)
	assert.True(t, r.Functions[0].IsComplex)
	assert.Len(t, r.Complex(), 1)
}

func TestNewFunctionRecord(t *testing.T) {
	assert.False(t, NewFunctionRecord("f", 1, 1).IsComplex)
	assert.False(t, NewFunctionRecord("f", 1, 10).IsComplex)
	assert.True(t, NewFunctionRecord("f", 1, 11).IsComplex)
}

func TestSyntaxErrorsAreDiagnosticsNotFailures(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("def ok():\n    return 1\n\ndef broken(:\n")

	s := a.ExtractStructure(context.Background(), src, "partial.py")
	assert.Contains(t, s.Names, "ok")
	assert.NotEmpty(t, s.Diagnostics)
}

func TestAnalyzeSharesOneParse(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	src := []byte("def foo():\n    return 1 if a else 2\n")

	s, r := a.Analyze(context.Background(), src, "x.py")
	assert.Equal(t, []string{"foo"}, s.Names)
	require.Len(t, r.Functions, 1)
	assert.Equal(t, 2, r.Functions[0].Complexity)
}

func TestPackageFunctions(t *testing.T) {
	s := ExtractStructure([]byte("function f() {}"), "f.js")
	assert.Equal(t, []string{"f"}, s.Names)

	recs := ComputeComplexity([]byte("function f() {}"), "f.js")
	assert.Equal(t, []FunctionRecord{{Name: "f", LineNumber: 1, Complexity: 1}}, recs)

	assert.Empty(t, ComputeComplexity([]byte("x"), "x.rb"))
}

func TestConcurrentAnalysis(t *testing.T) {
	defer goleak.VerifyNone(t)
	a, _ := newTestAnalyzer(t)

	files := map[string]string{
		"a.py":  "def a():\n    if x:\n        pass\n",
		"b.js":  "function b() { return x && y; }",
		"c.ts":  "const c = (n: number) => n > 1 ? n : 1;",
		"d.tsx": "function D() { return ok ? <p/> : null; }",
		"e.go":  "package e\n\nfunc e() { if true {} }\n",
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for path, src := range files {
			wg.Add(1)
			go func(path, src string) {
				defer wg.Done()
				r := a.ComputeComplexity(context.Background(), []byte(src), path)
				if assert.Len(t, r.Functions, 1, path) {
					assert.Equal(t, 2, r.Functions[0].Complexity, path)
				}
			}(path, src)
		}
	}
	wg.Wait()
}

func TestMissingGrammarIsParseError(t *testing.T) {
	reg := lang.NewRegistry(lang.Definition{ID: "toy", DisplayName: "Toy", Extensions: []string{".toy"}})
	a, hook := newTestAnalyzer(t, WithRegistry(reg))

	s := a.ExtractStructure(context.Background(), []byte("x"), "a.toy")
	assert.Equal(t, SummaryParseError, s.Kind)
	assert.Equal(t, "AST Parse Error: language has no grammar", s.String())

	r := a.ComputeComplexity(context.Background(), []byte("x"), "a.toy")
	assert.Empty(t, r.Functions)
	assert.NotEmpty(t, r.Error)

	var sawError bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			sawError = true
		}
	}
	assert.True(t, sawError)
}
