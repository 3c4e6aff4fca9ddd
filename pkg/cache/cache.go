// Package cache 在 KV 之上提供带前缀的泛型缓存，值用 sonic 编码.
//
// 年级列表的读多写少，服务层用它缓存 files:{grade}，上传与删除事件到达时失效.
//
//	c := cache.NewCache(kvStore)
//	list, err := cache.GetOrSet(ctx, c, "files:grade7", func() ([]*model.FileRecord, error) {
//		return engine.List(ctx, "grade7")
//	}, time.Minute)
//
// GetOrSet 在进程内用 singleflight 合并同一个键的并发加载，写回失败不影响返回值.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
)

// DefaultPrefix 默认键前缀.
const DefaultPrefix = "cache:"

// Cache 基于 KV 的缓存，所有键都带前缀以与同一 KV 中的存储数据隔离.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
	group   singleflight.Group
}

// Option 配置 Cache.
type Option func(*Cache)

// WithPrefix 设置键前缀.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{
		kvStore: kvStore,
		prefix:  DefaultPrefix,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get 泛型获取缓存值，未命中时返回 kv.ErrKeyNotFound.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("decode cache %s: %w", key, err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，如果不存在则调用 getter 并写回.
// 同一进程内对同一个键的并发未命中只会调用一次 getter.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return nil, err
		}

		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// DeletePrefix 删除以 prefix 开头的缓存键.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.kvStore.Keys(ctx, c.key(prefix)+"*")
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		errs = append(errs, c.kvStore.Delete(ctx, key))
	}

	return errors.Join(errs...)
}

// Clear 清空本前缀下的所有缓存.
func (c *Cache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}
