// Package cachesvc provides the core.Cache implementations used for analytics read models.
package cachesvc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
)

const scanCount = 100

type RedisCache struct {
	client *redis.Client
	prefix string
	genKey string
}

var _ core.Cache = (*RedisCache)(nil)

// NewRedisCache namespaces every key under "<app>:analytics:" so Purge never touches foreign keys.
// The generation counter lives outside that namespace at "<app>:analytics-generation".
func NewRedisCache(conf *core.Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	app := strings.ToLower(conf.AppName)
	return &RedisCache{
		client: client,
		prefix: app + ":analytics:",
		genKey: app + ":analytics-generation",
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "reading cache key %q", key)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "decoding cache key %q", key)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding cache key %q", key)
	}
	return errors.Wrapf(c.client.Set(ctx, c.prefix+key, data, ttl).Err(), "writing cache key %q", key)
}

func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, errors.Wrap(err, "reading cache generation")
}

// Purge bumps the generation first, then deletes the entries it made unreachable.
func (c *RedisCache) Purge(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.genKey).Err(); err != nil {
		return errors.Wrap(err, "bumping cache generation")
	}
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanCount).Result()
		if err != nil {
			return errors.Wrap(err, "scanning cache keys")
		}
		if len(keys) > 0 {
			if err = c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting cache keys")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Noop is used when no redis address is configured: every read misses.
type Noop struct{}

var _ core.Cache = Noop{}

func (Noop) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (Noop) Generation(context.Context) (uint64, error)                    { return 0, nil }
func (Noop) Purge(context.Context) error                                   { return nil }

// New returns a redis cache when conf names a redis address, Noop otherwise.
func New(conf *core.Config) core.Cache {
	if conf.Redis.Address == "" {
		return Noop{}
	}
	return NewRedisCache(conf)
}
