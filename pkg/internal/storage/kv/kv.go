// Package kv 提供键值存储抽象与 memory、redis、nats、groupcache 四种驱动.
//
// Keys 的 pattern 约定在所有驱动中保持一致：
//   - "" 或 "*" 匹配全部键
//   - 以 "*" 结尾表示前缀匹配，例如 "files/grade7/*"
//   - 其他情况为精确匹配
package kv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/gradevault/pkg/configs"
)

// ErrKeyNotFound 键不存在，所有驱动都用它包装未命中错误.
var ErrKeyNotFound = errors.New("key not found")

// KVStore 键值存储.
type KVStore interface {
	// Get 未命中时返回包装了 ErrKeyNotFound 的错误.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set ttl 为 0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除不存在的键不报错.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// Client 持有按配置打开的驱动.
type Client struct {
	KVStore

	Driver string
}

// Opener 按配置打开一种驱动.
type Opener func(ctx context.Context, cfg *configs.KVConfig) (KVStore, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Opener{}
)

// Register 注册驱动，同名覆盖.
func Register(name string, open Opener) {
	driversMu.Lock()
	drivers[name] = open
	driversMu.Unlock()
}

// Drivers 返回已注册的驱动名，按字母序.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	return slices.Sorted(maps.Keys(drivers))
}

// Open 打开 cfg.Type 指定的驱动.
func Open(ctx context.Context, cfg *configs.KVConfig) (KVStore, error) {
	driversMu.RLock()
	open, ok := drivers[cfg.Type]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("kv driver %q not registered (have %s)", cfg.Type, strings.Join(Drivers(), ", "))
	}

	return open(ctx, cfg)
}

// New 打开驱动并包装为 Client.
func New(ctx context.Context, cfg *configs.KVConfig) (*Client, error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Client{KVStore: s, Driver: cfg.Type}, nil
}

// IsNotFound 判断错误是否为键不存在.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// MatchPattern 按包文档中的约定判断 key 是否匹配 pattern.
func MatchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}

	return key == pattern
}
