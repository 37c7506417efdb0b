package autocomplete

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"semanticportal/internal/domain"
)

// Loader reads the full current contents of the collection.
type Loader func(ctx context.Context) ([]domain.StoredDocument, error)

// Cache owns the process-wide autocomplete snapshot. The snapshot is dropped on
// Invalidate and rebuilt by the next Get; concurrent Gets share one rebuild.
type Cache struct {
	mu    sync.Mutex
	index *Index
	gen   uint64

	group     singleflight.Group
	load      Loader
	threshold float64
	timeout   time.Duration
	builds    atomic.Int64
}

func NewCache(load Loader, threshold float64, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cache{
		load:      load,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Get returns the current snapshot, rebuilding it if absent.
func (c *Cache) Get(ctx context.Context) (*Index, error) {
	c.mu.Lock()
	if c.index != nil {
		idx := c.index
		c.mu.Unlock()
		return idx, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// The rebuild outlives the caller that started it; waiters give up on
	// their own context.
	rebuildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return c.rebuild(rebuildCtx, gen)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrAutocompleteRebuild, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	}
}

func (c *Cache) rebuild(ctx context.Context, gen uint64) (*Index, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docs, err := c.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAutocompleteRebuild, err)
	}

	idx := Build(docs, c.threshold)
	c.builds.Add(1)

	c.mu.Lock()
	if c.gen == gen {
		c.index = idx
	}
	c.mu.Unlock()

	return idx, nil
}

// Invalidate drops the snapshot. A rebuild already in flight still answers its
// waiters but is not kept.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = nil
	c.gen++
}

// Ready reports whether a snapshot is present.
func (c *Cache) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index != nil
}

// Builds returns how many snapshots have been built.
func (c *Cache) Builds() int64 {
	return c.builds.Load()
}
