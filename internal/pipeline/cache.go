package pipeline

import (
	"sync"
	"time"

	"github.com/Tilak559/gutter-estimate/internal/model"
)

// resultCache is a TTL-bounded in-process report cache. Reports are small
// and the cache is capped, so eviction is a simple sweep of expired entries
// plus oldest-first removal when over capacity.
type resultCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

type cacheEntry struct {
	report  *model.Report
	created time.Time
}

func newResultCache(ttl time.Duration, maxItems int) *resultCache {
	if maxItems <= 0 {
		maxItems = 256
	}
	return &resultCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

func (c *resultCache) get(key string) (*model.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.created) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.report, true
}

func (c *resultCache) put(key string, report *model.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{report: report, created: c.now()}
	if len(c.entries) <= c.maxItems {
		return
	}

	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.created.Before(cutoff) {
			delete(c.entries, k)
		}
	}
	for len(c.entries) > c.maxItems {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.created.Before(oldest) {
				oldestKey = k
				oldest = e.created
			}
		}
		delete(c.entries, oldestKey)
	}
}
