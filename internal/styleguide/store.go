// Package styleguide keeps a project's style guide as retrievable chunks.
package styleguide

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/surgebase/porter2"
	_ "modernc.org/sqlite"
)

var defaultRules = map[string]string{
	".py":  "Standard PEP8.",
	".js":  "Standard ESLint recommended rules.",
	".jsx": "Standard ESLint recommended rules with React best practices.",
	".ts":  "Standard TypeScript ESLint recommended rules.",
	".tsx": "Standard TypeScript ESLint recommended rules with React best practices.",
	".go":  "Effective Go and gofmt.",
}

// DefaultRules returns the fallback rules for an extension.
func DefaultRules(ext string) string {
	if r, ok := defaultRules[strings.ToLower(ext)]; ok {
		return r
	}
	return "General best practices."
}

// Store is a SQLite-backed set of style guide chunks. It is created once at
// startup and shared; all methods are safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log logrus.FieldLogger
}

// Open opens or creates the store at dbPath. ":memory:" gives a private
// in-memory store.
func Open(dbPath string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" databases from splitting per conn.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS style_chunks (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		terms TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SplitChunks splits a style guide into paragraphs on blank lines.
func SplitChunks(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var chunks []string
	for _, c := range strings.Split(content, "\n\n") {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// Ingest replaces the stored guide with the chunks of content and returns
// how many chunks were indexed.
func (s *Store) Ingest(ctx context.Context, content string) (int, error) {
	chunks := SplitChunks(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM style_chunks`); err != nil {
		return 0, fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO style_chunks (position, content, terms) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, i, c, strings.Join(Terms(c), " ")); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.log.WithField("chunks", len(chunks)).Info("style guide indexed")
	return len(chunks), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM style_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

type scored struct {
	content  string
	position int
	score    int
}

// Query returns up to n chunks ranked by how many stemmed terms they share
// with text. Chunks sharing no terms are not returned.
func (s *Store) Query(ctx context.Context, text string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	want := make(map[string]struct{})
	for _, t := range Terms(text) {
		want[t] = struct{}{}
	}
	if len(want) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT position, content, terms FROM style_chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []scored
	for rows.Next() {
		var (
			pos            int
			content, terms string
		)
		if err := rows.Scan(&pos, &content, &terms); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		score := 0
		seen := make(map[string]struct{})
		for _, t := range strings.Fields(terms) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := want[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{content: content, position: pos, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].position < hits[j].position
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.content
	}
	return out, nil
}

// Rules returns the best matching chunks for code, or the default rules for
// ext when nothing matches.
func (s *Store) Rules(ctx context.Context, code, ext string, n int) []string {
	chunks, err := s.Query(ctx, code, n)
	if err != nil {
		s.log.WithError(err).Warn("style guide lookup failed, using defaults")
	}
	if len(chunks) == 0 {
		return []string{DefaultRules(ext)}
	}
	return chunks
}

// Terms lower-cases, splits on non-alphanumerics, splits camelCase and
// snake_case identifiers, drops short words and stems the rest.
func Terms(text string) []string {
	var out []string
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, part := range splitCamel(word) {
			part = strings.ToLower(part)
			if len(part) < 3 {
				continue
			}
			out = append(out, porter2.Stem(part))
		}
	}
	return out
}

func splitCamel(word string) []string {
	var parts []string
	start := 0
	runes := []rune(word)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
