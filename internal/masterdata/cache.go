package masterdata

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type directoryReader interface {
	WarehouseExists(ctx context.Context, id string) (bool, error)
	BranchExists(ctx context.Context, id string) (bool, error)
}

// CachedDirectory serves existence checks through Redis. Only positive
// results are cached: a warehouse created moments ago must be visible
// immediately, while known ids never disappear mid-flight. Redis failures
// degrade to the underlying reader.
type CachedDirectory struct {
	reader directoryReader
	redis  *redis.Client
	ttl    time.Duration
}

// NewCachedDirectory constructs CachedDirectory.
func NewCachedDirectory(reader directoryReader, client *redis.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{reader: reader, redis: client, ttl: ttl}
}

// WarehouseExists reports whether the warehouse id is known.
func (c *CachedDirectory) WarehouseExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "masterdata:warehouse:"+id, func() (bool, error) {
		return c.reader.WarehouseExists(ctx, id)
	})
}

// BranchExists reports whether the branch id is known.
func (c *CachedDirectory) BranchExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "masterdata:branch:"+id, func() (bool, error) {
		return c.reader.BranchExists(ctx, id)
	})
}

func (c *CachedDirectory) exists(ctx context.Context, key string, load func() (bool, error)) (bool, error) {
	if c.redis != nil {
		if _, err := c.redis.Get(ctx, key).Result(); err == nil {
			return true, nil
		}
	}
	ok, err := load()
	if err != nil || !ok {
		return ok, err
	}
	if c.redis != nil {
		_ = c.redis.Set(ctx, key, "1", c.ttl).Err()
	}
	return true, nil
}
