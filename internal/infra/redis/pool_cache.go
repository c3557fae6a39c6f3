package redis

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PoolLoader lists every question id stored at a level (e.g. a document DB query).
type PoolLoader interface {
	QuestionIDsByLevel(ctx context.Context, level int) ([]string, error)
}

// PoolCache caches global level pools in Redis so replicas share one copy.
// Pools are stored as: RPUSH questions:level:{n} {id...}
// with a marker:       SET   questions:level:{n}:cached 1
// so an empty level is cached too.
type PoolCache struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolCache(client *redis.Client, loader PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) LevelPool(ctx context.Context, level int) ([]string, error) {
	if ids, ok := c.cached(ctx, level); ok {
		return ids, nil
	}

	result, err, _ := c.sf.Do(strconv.Itoa(level), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if ids, ok := c.cached(ctx, level); ok {
			return ids, nil
		}
		ids, err := c.loader.QuestionIDsByLevel(ctx, level)
		if err != nil {
			return nil, err
		}

		listKey, markerKey := c.keys(level)
		ttl := c.ttlWithJitter()
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, listKey)
		if len(ids) > 0 {
			values := make([]interface{}, len(ids))
			for i, id := range ids {
				values[i] = id
			}
			pipe.RPush(ctx, listKey, values...)
			if ttl > 0 {
				pipe.Expire(ctx, listKey, ttl)
			}
		}
		pipe.Set(ctx, markerKey, "1", ttl)
		// cache fill is best effort; the loaded pool is still returned
		_, _ = pipe.Exec(ctx)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), result.([]string)...), nil
}

func (c *PoolCache) Invalidate(ctx context.Context, level int) error {
	listKey, markerKey := c.keys(level)
	return c.client.Del(ctx, markerKey, listKey).Err()
}

func (c *PoolCache) cached(ctx context.Context, level int) ([]string, bool) {
	listKey, markerKey := c.keys(level)
	n, err := c.client.Exists(ctx, markerKey).Result()
	if err != nil || n == 0 {
		return nil, false
	}
	ids, err := c.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, false
	}
	return ids, true
}

func (c *PoolCache) keys(level int) (string, string) {
	list := "questions:level:" + strconv.Itoa(level)
	return list, list + ":cached"
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
