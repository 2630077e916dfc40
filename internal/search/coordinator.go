package search

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/hgrep/internal/index"
)

// RepoPool hands out repository handles for materialization. Handles are
// exclusive while held; Get blocks when all handles are in use.
type RepoPool interface {
	Get() Repo
	Put(Repo)
	Size() int
}

// Request is one search call.
type Request struct {
	Query    string
	Mode     Mode
	Page     int
	PageSize int
}

// Coordinator runs raw searches, caches their results, and fans
// materialization out over a pool of repository handles. The raw search is
// single-threaded and fast; only blob re-reads parallelize.
type Coordinator struct {
	index    *index.Index
	searcher *Searcher
	pool     RepoPool
	cache    *Cache
	logger   *zap.Logger
}

// NewCoordinator wires a coordinator over a finalized index.
func NewCoordinator(idx *index.Index, pool RepoPool, cacheSize int, logger *zap.Logger) (*Coordinator, error) {
	cache, err := NewCache(cacheSize)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		index:    idx,
		searcher: NewSearcher(idx),
		pool:     pool,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Index exposes the coordinator's index (read-only).
func (c *Coordinator) Index() *index.Index {
	return c.index
}

// Search evaluates one page of a query. The returned slice has one entry per
// raw result in the page range; entries are nil when the raw result has no
// live match or the range runs past the result count.
func (c *Coordinator) Search(ctx context.Context, req Request) ([]*SearchHit, error) {
	key := cacheKey{Mode: req.Mode, Query: strings.TrimSpace(req.Query)}
	if key.Query == "" {
		return nil, nil
	}

	from := req.Page * req.PageSize
	to := from + req.PageSize

	slots, ok := c.cache.Find(key, from, to)
	if !ok {
		raw, err := c.rawSearch(key)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("raw search complete",
			zap.String("query", key.Query),
			zap.Int("raw_results", len(raw)))

		c.cache.PutRaw(key, raw)

		slots = make([]CacheResult, 0, to-from)
		for i := from; i < to; i++ {
			if i >= len(raw) {
				slots = append(slots, CacheResult{Kind: CacheNotExist, Index: i})
			} else {
				slots = append(slots, CacheResult{Kind: CacheMiss, Raw: &raw[i], Index: i})
			}
		}
	}

	hits, err := c.materializeSlots(ctx, slots)
	if err != nil {
		return nil, err
	}

	newHits := make(map[int]*SearchHit)
	for i, slot := range slots {
		if slot.Kind == CacheMiss {
			newHits[slot.Index] = hits[i]
		}
	}
	c.cache.PutHits(key, newHits)

	return hits, nil
}

func (c *Coordinator) rawSearch(key cacheKey) ([]RawResult, error) {
	switch key.Mode {
	case ModeRegex:
		results, unfiltered, err := c.searcher.RegexSearch(key.Query, SearchOption{})
		if err != nil {
			return nil, err
		}
		if unfiltered {
			// Trigram filtering cannot narrow this pattern; scan every
			// document and let semantic verification sort it out.
			c.logger.Debug("regex query degenerated to full scan",
				zap.String("query", key.Query))
			return c.searcher.FullScan(key.Query, SearchOption{}), nil
		}
		return results, nil
	default:
		return c.searcher.PlainSearch(key.Query, SearchOption{})
	}
}

// materializeSlots verifies cache misses in parallel, one repository handle
// per in-flight materialization. Order of the returned slice follows the
// slots; materialization order itself is unspecified.
func (c *Coordinator) materializeSlots(ctx context.Context, slots []CacheResult) ([]*SearchHit, error) {
	hits := make([]*SearchHit, len(slots))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pool.Size())

	for i, slot := range slots {
		switch slot.Kind {
		case CacheHit:
			hits[i] = slot.Hit
			continue
		case CacheNotExist:
			continue
		}

		g.Go(func() error {
			// Cancellation is cooperative per raw result.
			if err := ctx.Err(); err != nil {
				return err
			}

			repo := c.pool.Get()
			defer c.pool.Put(repo)

			result, err := Materialize(repo, c.index, slot.Raw)
			if err != nil {
				return err
			}
			if result == nil {
				return nil
			}

			hit, err := NewSearchHit(repo, result)
			if err != nil {
				return err
			}

			mu.Lock()
			hits[i] = hit
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hits, nil
}
