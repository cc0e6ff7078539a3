// Package cache provides translation caching implementations.
package cache

import (
	"fmt"
	"time"

	"github.com/ZaguanLabs/pagetran"
	"github.com/rs/zerolog"
)

// TranslationCache is an alias to the main package interface.
type TranslationCache = pagetran.TranslationCache

// Config selects and configures a cache backend.
type Config struct {
	Backend   string        // "", "memory" or "redis"
	TTL       time.Duration // Entry lifetime (0 = no expiration)
	RedisURL  string        // Redis connection URL (redis backend)
	KeyPrefix string        // Redis key prefix (default: "pagetran:")
	File      string        // Snapshot file loaded and saved by the memory backend
}

// Open builds the configured cache. It returns a nil cache when caching is
// disabled. The returned close function flushes and releases the backend.
func Open(cfg Config, logger zerolog.Logger) (TranslationCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", "none":
		return nil, noop, nil

	case "memory":
		c := NewInMemoryCache(cfg.TTL)
		if cfg.File == "" {
			return c, noop, nil
		}
		n, err := LoadSnapshot(cfg.File, c)
		if err != nil {
			return nil, noop, err
		}
		logger.Debug().Str("file", cfg.File).Int("entries", n).Msg("cache snapshot loaded")
		return c, func() error {
			if n := c.Purge(); n > 0 {
				logger.Debug().Int("entries", n).Msg("expired cache entries dropped")
			}
			return SaveSnapshot(cfg.File, c)
		}, nil

	case "redis":
		c, err := NewRedisCache(RedisConfig{URL: cfg.RedisURL, TTL: cfg.TTL, KeyPrefix: cfg.KeyPrefix, Logger: logger})
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		return c, c.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
