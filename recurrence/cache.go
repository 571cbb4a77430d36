package recurrence

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PreviewCache keeps recent expansions so re-rendering a preview for an
// unchanged rule does not walk the rule again. Entries expire after TTL; past
// MaxEntries the least recently read ones are dropped.
type PreviewCache struct {
	items           *gocache.Cache
	mu              sync.Mutex // serializes Set and eviction
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
}

// CacheConfig holds configuration for the preview cache
type CacheConfig struct {
	TTL             time.Duration // how long an expansion stays valid
	MaxEntries      int
	CleanupInterval time.Duration // how often expired entries are swept
}

// DefaultCacheConfig suits one interactive editor
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      256,
	CleanupInterval: 5 * time.Minute,
}

// CacheKey identifies one expansion request
type CacheKey struct {
	Operation  string
	Dtstart    time.Time
	Rule       string
	RangeStart time.Time
	RangeEnd   time.Time
}

// String joins the key fields with NUL, which cannot occur in a rule string
func (k CacheKey) String() string {
	return strings.Join([]string{
		k.Operation,
		k.Dtstart.UTC().Format(time.RFC3339Nano),
		k.Rule,
		k.RangeStart.UTC().Format(time.RFC3339Nano),
		k.RangeEnd.UTC().Format(time.RFC3339Nano),
	}, "\x00")
}

type expansion struct {
	occurrences []time.Time
	lastRead    atomic.Int64
}

// NewPreviewCache creates a cache. Zero fields of config take their value from
// DefaultCacheConfig.
func NewPreviewCache(config CacheConfig) *PreviewCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}

	return &PreviewCache{
		items:           gocache.New(config.TTL, config.CleanupInterval),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
	}
}

// Get returns a copy of the cached occurrences for key
func (c *PreviewCache) Get(key CacheKey) ([]time.Time, bool) {
	v, found := c.items.Get(key.String())
	if !found {
		return nil, false
	}
	entry := v.(*expansion)
	entry.lastRead.Store(time.Now().UnixNano())
	return append([]time.Time(nil), entry.occurrences...), true
}

// Set stores a copy of occurrences under key
func (c *PreviewCache) Set(key CacheKey, occurrences []time.Time) {
	entry := &expansion{occurrences: append([]time.Time(nil), occurrences...)}
	entry.lastRead.Store(time.Now().UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items.Set(key.String(), entry, c.ttl)
	if c.items.ItemCount() > c.maxEntries {
		c.evict()
	}
}

// evict drops expired entries, then the least recently read ones until the
// cache is back at maxEntries. Callers hold c.mu.
func (c *PreviewCache) evict() {
	c.items.DeleteExpired()

	live := c.items.Items()
	excess := len(live) - c.maxEntries
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(live))
	for k := range live {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return live[keys[i]].Object.(*expansion).lastRead.Load() < live[keys[j]].Object.(*expansion).lastRead.Load()
	})
	for _, k := range keys[:excess] {
		c.items.Delete(k)
	}
}

// Close empties the cache. It is safe to call more than once.
func (c *PreviewCache) Close() {
	c.items.Flush()
}

// Stats counts the stored entries. Expired entries are counted until the next
// sweep removes them.
func (c *PreviewCache) Stats() CacheStats {
	total := c.items.ItemCount()
	active := len(c.items.Items())
	if active > total {
		total = active
	}
	return CacheStats{
		TotalEntries:   total,
		ExpiredEntries: total - active,
		ActiveEntries:  active,
	}
}

// CacheStats provides information about cache usage
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
