//go:build !no_redis

package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yeisme/gradevault/pkg/configs"
)

const redisScanCount = 512

// RedisKV 基于 Redis 的驱动，Keys 使用 SCAN 遍历.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV 连接 Redis 并 PING 一次.
func NewRedisKV(ctx context.Context, cfg *configs.KVConfig) (KVStore, error) {
	rc := cfg.Redis

	rdb := redis.NewClient(&redis.Options{
		Addr:       rc.Addr,
		Password:   rc.Password,
		DB:         rc.DB,
		ClientName: configs.AppName,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis kv: ping %s: %w", rc.Addr, err)
	}

	return &RedisKV{rdb: rdb}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, notFound(key)
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return b, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return wrapRedis("set", key, r.rdb.Set(ctx, key, value, ttl).Err())
}

// Delete 使用 UNLINK，大值在服务端异步释放.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return wrapRedis("unlink", key, r.rdb.Unlink(ctx, key).Err())
}

func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapRedis("exists", key, err)
	}

	return n == 1, nil
}

func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string

	it := r.rdb.Scan(ctx, 0, redisGlob(pattern), redisScanCount).Iterator()
	for it.Next(ctx) {
		keys = append(keys, it.Val())
	}

	if err := it.Err(); err != nil {
		return nil, wrapRedis("scan", pattern, err)
	}

	return keys, nil
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func wrapRedis(op, key string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("redis %s %s: %w", op, key, err)
}

// redisGlob 把通用 pattern 转为 Redis glob，前缀中的 glob 元字符按字面匹配.
func redisGlob(pattern string) string {
	prefix, open := strings.CutSuffix(pattern, "*")
	if prefix == "" {
		return "*"
	}

	glob := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`).Replace(prefix)
	if open {
		glob += "*"
	}

	return glob
}

func init() {
	Register("redis", NewRedisKV)
}
