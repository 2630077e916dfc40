package search

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies a normalized query. Two requests with the same mode
// and trimmed query text share raw results and materializations.
type cacheKey struct {
	Mode  Mode
	Query string
}

// cachedResults is one cache entry: the full raw result sequence of a query
// plus the sparse set of already-materialized hits, keyed by raw-result
// index. A nil stored hit records a raw result with no live match.
type cachedResults struct {
	raw  []RawResult
	hits map[int]*SearchHit
}

// CacheResultKind classifies one slot of a page lookup.
type CacheResultKind int

const (
	// CacheHit: the slot is materialized (possibly to "no live match").
	CacheHit CacheResultKind = iota
	// CacheMiss: a raw result exists but has not been materialized yet.
	CacheMiss
	// CacheNotExist: the index is past the end of the raw results.
	CacheNotExist
)

// CacheResult is one page slot from the cache.
type CacheResult struct {
	Kind CacheResultKind
	Hit  *SearchHit // valid for CacheHit
	Raw  *RawResult // valid for CacheMiss
	// Index is the raw-result position; used to store the materialization.
	Index int
}

// Cache is a bounded LRU over normalized queries. A single mutex guards the
// LRU and entry mutation: one writer per entry, many cheap readers, and
// every operation is O(page size).
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[cacheKey, *cachedResults]
}

// NewCache creates a cache bounded to size queries.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[cacheKey, *cachedResults](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Find returns the slots [from, to) for a cached query, or ok=false when the
// query has no cached raw results at all.
func (c *Cache) Find(key cacheKey, from, to int) ([]CacheResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}

	results := make([]CacheResult, 0, to-from)
	for i := from; i < to; i++ {
		switch {
		case i >= len(entry.raw):
			results = append(results, CacheResult{Kind: CacheNotExist, Index: i})
		default:
			if hit, ok := entry.hits[i]; ok {
				results = append(results, CacheResult{Kind: CacheHit, Hit: hit, Index: i})
			} else {
				results = append(results, CacheResult{Kind: CacheMiss, Raw: &entry.raw[i], Index: i})
			}
		}
	}
	return results, true
}

// PutRaw stores the raw result sequence of a query, resetting any stale
// materializations.
func (c *Cache) PutRaw(key cacheKey, raw []RawResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(key, &cachedResults{
		raw:  raw,
		hits: make(map[int]*SearchHit),
	})
}

// PutHits records materializations by raw-result index. Entries evicted
// between the raw search and this call are silently dropped.
func (c *Cache) PutHits(key cacheKey, hits map[int]*SearchHit) {
	if len(hits) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return
	}
	for index, hit := range hits {
		entry.hits[index] = hit
	}
}
