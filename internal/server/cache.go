package server

import (
	"github.com/agentic-research/devsentinel/internal/analysis"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type analyzed struct {
	summary analysis.Summary
	report  analysis.Report
}

// resultCache remembers analyses keyed by a hash of path and content. The
// path is part of the key because it selects the language.
type resultCache struct {
	lru *lru.Cache[uint64, analyzed]
}

// newResultCache returns nil when size is not positive; a nil cache never
// hits.
func newResultCache(size int) *resultCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[uint64, analyzed](size)
	if err != nil {
		return nil
	}
	return &resultCache{lru: c}
}

func cacheKey(path, code string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(path)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(code)
	return d.Sum64()
}

func (c *resultCache) get(key uint64) (analyzed, bool) {
	if c == nil {
		return analyzed{}, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) add(key uint64, v analyzed) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}
