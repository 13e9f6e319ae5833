package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/agentic-research/devsentinel/internal/styleguide"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI from an empty working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(context.Background(), t, args...)
}

func runContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { resetFlags(rootCmd) })
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func workdir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GROQ_API_KEY", "")
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func branchy(n int) string {
	var b strings.Builder
	b.WriteString("def busy(x):\n")
	for i := 0; i < n; i++ {
		b.WriteString("    if x:\n        pass\n")
	}
	return b.String()
}

func TestComplexityJSON(t *testing.T) {
	workdir(t, map[string]string{
		"src/a.py":     "def foo(x):\n    if x:\n        return 1\n",
		"src/lib/b.js": "function bar(a, b) { return a && b; }\n",
		"src/c.txt":    "not code",
	})

	out, err := run(t, "complexity", "--json", "src/**/*.py", "src/**/*.js", "src/c.txt")
	require.NoError(t, err)

	var reports []FileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)

	assert.Equal(t, "src/a.py", filepath.ToSlash(reports[0].Path))
	assert.Equal(t, []analysis.FunctionRecord{{Name: "foo", LineNumber: 1, Complexity: 2}}, reports[0].Functions)
	assert.Equal(t, "src/lib/b.js", filepath.ToSlash(reports[1].Path))
	assert.Equal(t, 2, reports[1].Functions[0].Complexity)
	assert.Empty(t, reports[2].Functions)
	assert.Equal(t, analysis.ComplexityThreshold, reports[2].Threshold)
}

func TestComplexityTableAndFailFlag(t *testing.T) {
	workdir(t, map[string]string{
		"busy.py":   branchy(10),
		"simple.py": "def ok():\n    return 1\n",
	})

	out, err := run(t, "complexity", "busy.py", "simple.py")
	require.NoError(t, err)
	assert.Contains(t, out, "busy.py:1")
	assert.Contains(t, out, "11")
	assert.Contains(t, out, "COMPLEX")
	assert.Contains(t, out, "simple.py:1")

	out, err = run(t, "complexity", "--only-complex", "--fail-on-complex", "busy.py", "simple.py")
	assert.ErrorIs(t, err, errComplexFunction)
	assert.Contains(t, out, "busy")
	assert.NotContains(t, out, "simple.py")
}

func TestComplexityMissingFile(t *testing.T) {
	workdir(t, nil)
	_, err := run(t, "complexity", "nope/*.py")
	assert.Error(t, err)
}

func TestStructure(t *testing.T) {
	workdir(t, map[string]string{
		"app.py":    "def foo(): pass\nclass Bar: pass\n",
		"script.js": "console.log(1);\n",
		"bad.py":    "def broken(:\n",
	})

	out, err := run(t, "structure", "app.py", "script.js", "bad.py")
	require.NoError(t, err)
	assert.Contains(t, out, "app.py: Found Functions: foo, Bar\n")
	assert.Contains(t, out, "script.js: Root Level Script\n")
	assert.Contains(t, out, "line 1:")

	out, err = run(t, "structure", "--json", "app.py")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "functions", got[0]["kind"])
	assert.Equal(t, "Found Functions: foo, Bar", got[0]["summary"])
}

func TestIngestStyle(t *testing.T) {
	dir := workdir(t, map[string]string{
		"STYLE_GUIDE.md": "Use snake_case.\n\nNo bare except.\n",
	})
	db := filepath.Join(dir, "style.db")
	t.Setenv("DEVSENTINEL_STYLE_DB_PATH", db)

	out, err := run(t, "ingest-style", "STYLE_GUIDE.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chunks")

	store, err := styleguide.Open(db, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInvalidLogLevel(t *testing.T) {
	workdir(t, map[string]string{"a.py": "x = 1\n"})
	_, err := run(t, "--log-level", "chatty", "structure", "a.py")
	assert.Error(t, err)
}

func TestExpandPaths(t *testing.T) {
	workdir(t, map[string]string{
		"a/x.py": "", "a/b/y.py": "", "a/b/z.go": "",
	})

	got, err := expandPaths([]string{"a/**/*.py", "a/x.py", "a"})
	require.NoError(t, err)
	for i := range got {
		got[i] = filepath.ToSlash(got[i])
	}
	assert.Equal(t, []string{"a/b/y.py", "a/x.py"}, got)

	_, err = expandPaths([]string{"a/[.py"})
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	workdir(t, map[string]string{
		"a.py":   "try:\n    run()\nexcept:\n    pass\n",
		"b.go":   "package b\n\nvar names []string\n",
		"c.js":   "const ok = 1;\n",
		"d.json": "{}",
	})

	out, err := run(t, "lint", "a.py", "b.go", "c.js", "d.json")
	require.NoError(t, err)
	assert.Contains(t, out, "a.py:3:1: warning:")
	assert.Contains(t, out, "[py-bare-except]")
	assert.Contains(t, out, "b.go:3:5: info:")
	assert.NotContains(t, out, "c.js")

	out, err = run(t, "lint", "--json", "--fail", "a.py", "c.js")
	assert.ErrorIs(t, err, errLintFindings)
	var got []FileFindings
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Len(t, got[0].Findings, 1)
	assert.Empty(t, got[1].Findings)

	_, err = run(t, "lint", "--fail", "c.js")
	assert.NoError(t, err)
}

func fakeChatServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_abcdefghijklmnopqrstuvwxyz", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckLLM(t *testing.T) {
	workdir(t, nil)
	srv := fakeChatServer(t, http.StatusOK, `{
		"id": "1", "object": "chat.completion", "model": "m",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "JSON is a text format."}}]
	}`)
	t.Setenv("DEVSENTINEL_LLM_BASE_URL", srv.URL)
	t.Setenv("DEVSENTINEL_LLM_API_KEY", "gsk_abcdefghijklmnopqrstuvwxyz")

	out, err := run(t, "check-llm")
	require.NoError(t, err)
	assert.Contains(t, out, "API key present: true")
	assert.Contains(t, out, "JSON is a text format.")
}

func TestCheckLLMRedactsKeyInErrors(t *testing.T) {
	workdir(t, nil)
	srv := fakeChatServer(t, http.StatusUnauthorized,
		`{"error": {"message": "Invalid API Key gsk_abcdefghijklmnopqrstuvwxyz", "type": "invalid_request_error"}}`)
	t.Setenv("DEVSENTINEL_LLM_BASE_URL", srv.URL)
	t.Setenv("DEVSENTINEL_LLM_API_KEY", "gsk_abcdefghijklmnopqrstuvwxyz")

	_, err := run(t, "check-llm")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "gsk_abcdefghijklmnopqrstuvwxyz")
	var redacted *redactedError
	assert.ErrorAs(t, err, &redacted)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServe(t *testing.T) {
	workdir(t, nil)
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := runContext(ctx, t, "serve", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
		done <- err
	}()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
	_, err := os.Stat("style_guide.db")
	assert.NoError(t, err)
}
