package recurrence

import (
	"time"
)

const year = 365 * 24 * time.Hour

// EngineConfig tunes an Engine
type EngineConfig struct {
	// Cache is nil when expansions are not cached
	Cache *CacheConfig

	// MaxExpansionOccurrences bounds the candidates Next examines
	MaxExpansionOccurrences int
	// Between cuts ranges longer than LargeRangeThreshold to LargeRangeLimit
	LargeRangeThreshold time.Duration
	LargeRangeLimit     time.Duration
}

// DefaultEngineConfig caches previews for a long-lived editor
var DefaultEngineConfig = EngineConfig{
	Cache:                   &DefaultCacheConfig,
	MaxExpansionOccurrences: 500,
	LargeRangeThreshold:     2 * year,
	LargeRangeLimit:         2 * year,
}

// SmallCacheConfig keeps a handful of previews for a short time
var SmallCacheConfig = EngineConfig{
	Cache: &CacheConfig{
		TTL:             time.Minute,
		MaxEntries:      32,
		CleanupInterval: 30 * time.Second,
	},
	MaxExpansionOccurrences: 100,
	LargeRangeThreshold:     year,
	LargeRangeLimit:         year,
}

// UncachedConfig expands every request afresh. Editors and stores use it
// unless given an engine.
var UncachedConfig = EngineConfig{
	MaxExpansionOccurrences: 1000,
	LargeRangeThreshold:     5 * year,
	LargeRangeLimit:         5 * year,
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxExpansionOccurrences <= 0 {
		c.MaxExpansionOccurrences = DefaultEngineConfig.MaxExpansionOccurrences
	}
	if c.LargeRangeThreshold <= 0 {
		c.LargeRangeThreshold = DefaultEngineConfig.LargeRangeThreshold
	}
	if c.LargeRangeLimit <= 0 {
		c.LargeRangeLimit = c.LargeRangeThreshold
	}
	return c
}

// NewEngineWithConfig creates an engine. Zero limits take their value from
// DefaultEngineConfig.
func NewEngineWithConfig(config EngineConfig) *Engine {
	config = config.withDefaults()

	e := &Engine{config: config}
	if config.Cache != nil {
		e.cache = NewPreviewCache(*config.Cache)
	}
	return e
}
