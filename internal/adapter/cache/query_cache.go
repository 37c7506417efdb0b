package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"semanticportal/internal/domain"
	"semanticportal/internal/port"
)

const (
	DefaultMaxSize = 256
	DefaultTTL     = 5 * time.Minute
)

// QueryCache is an LRU of search results with a TTL. Invalidate drops every
// entry and bumps a generation so results computed before it are never stored.
type QueryCache struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, []domain.SearchResult]
	gen     uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &QueryCache{
		entries: expirable.NewLRU[string, []domain.SearchResult](maxSize, nil, ttl),
	}
}

// Key collapses whitespace so that spacing variants share an entry.
func Key(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func (c *QueryCache) Get(query string) ([]domain.SearchResult, bool) {
	return c.entries.Get(Key(query))
}

// Generation reports the current generation, to be passed back to Put.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Put stores results computed during generation gen. Stale results are dropped.
func (c *QueryCache) Put(query string, gen uint64, results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.entries.Add(Key(query), results)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.gen++
}

func (c *QueryCache) Size() int {
	return c.entries.Len()
}

var _ port.Searcher = (*CachedSearcher)(nil)

// CachedSearcher answers repeated queries from a QueryCache.
type CachedSearcher struct {
	searcher port.Searcher
	cache    *QueryCache
}

func NewCachedSearcher(searcher port.Searcher, cache *QueryCache) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if results, hit := s.cache.Get(query); hit {
		return results, nil
	}

	gen := s.cache.Generation()
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Put(query, gen, results)
	return results, nil
}

// Invalidate drops cached results, typically after new content is stored.
func (s *CachedSearcher) Invalidate() {
	s.cache.Invalidate()
}
