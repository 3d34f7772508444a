package cache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"tablero/internal/core"
	"tablero/internal/log"
)

// Loader produces tables for a source and reports the source identity.
type Loader interface {
	Identity(ctx context.Context) string
	Load(ctx context.Context) *core.Table
}

// maxSnapshots bounds how many source identities are remembered at once.
const maxSnapshots = 4

const anonymousKey = "source"

// Stats are cumulative counters since construction.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Loads   int64 `json:"loads"`
	Entries int   `json:"entries"`
}

// TableCache memoizes loaded tables keyed by source identity. A changed
// identity, an expired entry or an explicit Invalidate forces a reload;
// concurrent misses for one identity share a single load.
type TableCache struct {
	loader  Loader
	entries *LRUCache[*core.Table]
	group   singleflight.Group
	current atomic.Pointer[core.Table]
	logger  *log.Logger

	hits, misses, loads atomic.Int64
}

func NewTableCache(loader Loader, ttl time.Duration, logger *log.Logger) *TableCache {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TableCache{
		loader:  loader,
		entries: NewLRUCache[*core.Table](maxSnapshots, ttl),
		logger:  logger.WithComponent(log.ComponentCache),
	}
}

// Entries exposes the underlying LRU so a Manager can clean it.
func (c *TableCache) Entries() Cleaner { return c.entries }

// Get returns the table for the current source content.
func (c *TableCache) Get(ctx context.Context) *core.Table {
	key := c.key(ctx)
	if t, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return t
	}
	c.misses.Add(1)
	return c.load(ctx, key)
}

// Reload drops every entry and loads the current source content.
func (c *TableCache) Reload(ctx context.Context) *core.Table {
	c.Invalidate()
	key := c.key(ctx)
	c.group.Forget(key)
	return c.load(ctx, key)
}

// Invalidate drops every cached table. The next Get reloads.
func (c *TableCache) Invalidate() {
	if n := c.entries.Purge(); n > 0 {
		c.logger.Info("Cache invalidated", "entries", n)
	}
}

// Current is the most recently loaded table, or nil before the first load.
func (c *TableCache) Current() *core.Table {
	return c.current.Load()
}

func (c *TableCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Loads:   c.loads.Load(),
		Entries: c.entries.Size(),
	}
}

func (c *TableCache) key(ctx context.Context) string {
	if id := c.loader.Identity(ctx); id != "" {
		return id
	}
	return anonymousKey
}

func (c *TableCache) load(ctx context.Context, key string) *core.Table {
	// The shared load must outlive the cancellation of any single caller.
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		t := c.loader.Load(loadCtx)
		c.loads.Add(1)
		c.entries.Set(key, t)
		c.current.Store(t)
		c.logger.DebugContext(loadCtx, "Table cached", log.FieldSource, key, log.FieldVersion, t.Version)
		return t, nil
	})
	return v.(*core.Table)
}
