package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var delIfEqualsScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisCache struct {
	cli *redis.Client
}

func NewRedisCache(cli *redis.Client) Cache {
	return &redisCache{cli: cli}
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return ErrNil
	case redis.HasErrorPrefix(err, "WRONGTYPE"):
		return fmt.Errorf("%w: %v", ErrWrongType, err)
	default:
		return err
	}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cli.Get(ctx, key).Result()
	return val, mapErr(err)
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return mapErr(c.cli.Set(ctx, key, value, ttl).Err())
}

func (c *redisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, ttl).Result()
}

func (c *redisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return mapErr(c.cli.Del(ctx, keys...).Err())
}

func (c *redisCache) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := delIfEqualsScript.Run(ctx, c.cli, []string{key}, value).Int()
	if err != nil {
		return false, mapErr(err)
	}
	return n == 1, nil
}

func (c *redisCache) Expire(ctx context.Context, ttl time.Duration, keys ...string) error {
	pipe := c.cli.Pipeline()
	for _, k := range keys {
		pipe.PExpire(ctx, k, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) SAdd(ctx context.Context, key string, members ...string) error {
	return mapErr(c.cli.SAdd(ctx, key, toArgs(members)...).Err())
}

func (c *redisCache) SRem(ctx context.Context, key string, members ...string) error {
	return mapErr(c.cli.SRem(ctx, key, toArgs(members)...).Err())
}

func (c *redisCache) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.cli.SMembers(ctx, key).Result()
}

func (c *redisCache) SCard(ctx context.Context, key string) (int64, error) {
	return c.cli.SCard(ctx, key).Result()
}

func (c *redisCache) LPush(ctx context.Context, key string, values ...string) error {
	return mapErr(c.cli.LPush(ctx, key, toArgs(values)...).Err())
}

func (c *redisCache) RPush(ctx context.Context, key string, values ...string) error {
	return mapErr(c.cli.RPush(ctx, key, toArgs(values)...).Err())
}

func (c *redisCache) LPop(ctx context.Context, key string) (string, error) {
	val, err := c.cli.LPop(ctx, key).Result()
	return val, mapErr(err)
}

func (c *redisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.cli.LRange(ctx, key, start, stop).Result()
}

func (c *redisCache) LTrim(ctx context.Context, key string, start, stop int64) error {
	return mapErr(c.cli.LTrim(ctx, key, start, stop).Err())
}

func (c *redisCache) LLen(ctx context.Context, key string) (int64, error) {
	return c.cli.LLen(ctx, key).Result()
}

func (c *redisCache) ReplaceList(ctx context.Context, key string, values []string, ttl time.Duration) error {
	pipe := c.cli.TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, toArgs(values)...)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func toArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
