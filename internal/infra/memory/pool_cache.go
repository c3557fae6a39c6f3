package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// PoolLoader lists every question id stored at a level (e.g. a document DB query).
type PoolLoader interface {
	QuestionIDsByLevel(ctx context.Context, level int) ([]string, error)
}

// PoolCache caches global level pools with a TTL to avoid rescanning the question store.
type PoolCache struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[int]cachedPool
}

type cachedPool struct {
	ids       []string
	expiresAt time.Time
}

func NewPoolCache(loader PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedPool),
	}
}

// LevelPool returns a private copy of the cached pool, loading it at most once concurrently.
func (c *PoolCache) LevelPool(ctx context.Context, level int) ([]string, error) {
	if ids, ok := c.lookup(level); ok {
		return ids, nil
	}

	result, err, _ := c.sf.Do(strconv.Itoa(level), func() (interface{}, error) {
		if ids, ok := c.lookup(level); ok {
			return ids, nil
		}
		ids, err := c.loader.QuestionIDsByLevel(ctx, level)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[level] = cachedPool{
			ids:       append([]string(nil), ids...),
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

// Invalidate forgets the cached pool for level.
func (c *PoolCache) Invalidate(_ context.Context, level int) error {
	c.mu.Lock()
	delete(c.cache, level)
	c.mu.Unlock()
	return nil
}

func (c *PoolCache) lookup(level int) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[level]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return append([]string(nil), entry.ids...), true
}

func (c *PoolCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
