package sheet

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rebar-stats/domain/shipment"
)

// Cache keeps the last loaded table for a short time so that repeated
// requests do not re-parse the workbook. Concurrent misses share one load.
// Failed loads are not cached.
type Cache struct {
	load func() (*shipment.Table, error)
	ttl  time.Duration
	now  func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	table    *shipment.Table
	loadedAt time.Time
}

func NewCache(ttl time.Duration, load func() (*shipment.Table, error)) *Cache {
	return &Cache{load: load, ttl: ttl, now: time.Now}
}

func (c *Cache) Get() (*shipment.Table, error) {
	c.mu.RLock()
	if c.table != nil && c.now().Sub(c.loadedAt) < c.ttl {
		t := c.table
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("table", func() (any, error) {
		t, err := c.load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.table, c.loadedAt = t, c.now()
		c.mu.Unlock()
		slog.Debug("sheet.cache.loaded", "source", t.Source, "rows", len(t.Rows))
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*shipment.Table), nil
}

// Invalidate drops the cached table; the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.mu.Unlock()
}
