// Package cache provides a two tier analysis cache: L1 in process memory and
// an optional L2 in Redis. L1 is fast but lost on restart; L2 survives
// restarts and is shared between instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const keyPrefix = "ytscope:analysis:"

// AnalysisCache implements ports.AnalysisCache
type AnalysisCache struct {
	l1         sync.Map              // key -> *entry
	rdb        redis.UniversalClient // nil disables L2
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

var _ ports.AnalysisCache = (*AnalysisCache)(nil)

// New creates a cache. rdb may be nil.
func New(rdb redis.UniversalClient, ttl time.Duration, maxEntries int, logger *zap.Logger) *AnalysisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AnalysisCache{rdb: rdb, ttl: ttl, maxEntries: maxEntries, logger: logger}
}

// Key builds a deterministic key from the parts of item that feed the prompt
// and the provider that answered.
func Key(item *domain.ContentItem, provider domain.ProviderName) string {
	joined := strings.Join([]string{
		string(item.Source),
		item.ExternalID,
		item.Title,
		item.Description,
		strings.Join(item.Tags, ","),
		string(provider),
	}, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:12])
}

// Get tries L1, then L2. An L2 hit populates L1.
func (c *AnalysisCache) Get(ctx context.Context, key string) (*domain.Analysis, bool) {
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if time.Now().Before(e.expiresAt) {
			var out domain.Analysis
			if json.Unmarshal(e.data, &out) == nil {
				c.hits.Add(1)
				return &out, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out domain.Analysis
			if json.Unmarshal(data, &out) == nil {
				c.hits.Add(1)
				c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})
				return &out, true
			}
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores analysis in both tiers
func (c *AnalysisCache) Set(ctx context.Context, key string, analysis *domain.Analysis) {
	data, err := json.Marshal(analysis)
	if err != nil {
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("cache L2 set failed", zap.Error(err))
		}
	}
}

// Stats returns hit and miss counters
func (c *AnalysisCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len counts L1 entries
func (c *AnalysisCache) Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded makes room for one more entry: expired entries go first, then
// the ones closest to expiry.
func (c *AnalysisCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			if e, ok := val.(*entry); ok && (oldestKey == nil || e.expiresAt.Before(oldestAt)) {
				oldestKey = key
				oldestAt = e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// Run removes expired L1 entries every interval until ctx is done
func (c *AnalysisCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		}
	}
}
