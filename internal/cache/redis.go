package cache

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type redisClient struct {
	c          *rdb.Client
	prefix     string
	defaultTTL time.Duration
}

func newRedis(cfg Config) Client {
	return &redisClient{
		c: rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		prefix:     cfg.Redis.Prefix,
		defaultTTL: cfg.DefaultTTL,
	}
}

func (r *redisClient) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *redisClient) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.c.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *redisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	_ = r.c.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisClient) Delete(ctx context.Context, key string) {
	_ = r.c.Del(ctx, r.key(key)).Err()
}

func (r *redisClient) Close() error { return r.c.Close() }
