package kv

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/gradevault/pkg/configs"
)

// GroupcacheKV 以本进程的 map 为源、groupcache 为读缓存的驱动.
// groupcache 不支持失效，缓存键带版本号 "key#ver"，Set/Delete 后旧版本不再被读到.
// ttl 被忽略.
type GroupcacheKV struct {
	group *groupcache.Group
	pool  *groupcache.HTTPPool

	mu   sync.RWMutex
	src  map[string][]byte
	vers map[string]uint64
}

var (
	gcMu        sync.Mutex
	gcInstances = map[string]*GroupcacheKV{}
)

// NewGroupcacheKV 返回名为 cfg.Groupcache.Name 的实例.
// groupcache 的 group 名在进程内唯一，同名重复打开得到同一实例.
func NewGroupcacheKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	gc := cfg.Groupcache

	gcMu.Lock()
	defer gcMu.Unlock()

	if g, ok := gcInstances[gc.Name]; ok {
		return g, nil
	}

	g := &GroupcacheKV{src: map[string][]byte{}, vers: map[string]uint64{}}
	g.group = groupcache.NewGroup(gc.Name, gc.CacheBytes, groupcache.GetterFunc(g.load))

	if len(gc.Peers) > 0 {
		g.pool = groupcache.NewHTTPPoolOpts(gc.Self, nil)
		g.pool.Set(gc.Peers...)
	}

	gcInstances[gc.Name] = g

	return g, nil
}

func versioned(key string, ver uint64) string {
	return key + "#" + strconv.FormatUint(ver, 10)
}

func (g *GroupcacheKV) load(_ context.Context, vkey string, dest groupcache.Sink) error {
	key := vkey
	if i := strings.LastIndexByte(vkey, '#'); i >= 0 {
		key = vkey[:i]
	}

	g.mu.RLock()
	v, ok := g.src[key]
	g.mu.RUnlock()

	if !ok {
		return notFound(key)
	}

	return dest.SetBytes(v)
}

func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	_, ok := g.src[key]
	ver := g.vers[key]
	g.mu.RUnlock()

	if !ok {
		return nil, notFound(key)
	}

	var out []byte
	if err := g.group.Get(ctx, versioned(key, ver), groupcache.AllocatingByteSliceSink(&out)); err != nil {
		return nil, fmt.Errorf("groupcache get %s: %w", key, err)
	}

	return out, nil
}

func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	g.mu.Lock()
	g.src[key] = slices.Clone(value)
	g.vers[key]++
	g.mu.Unlock()

	return nil
}

func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.src, key)
	g.vers[key]++
	g.mu.Unlock()

	return nil
}

func (g *GroupcacheKV) Exists(_ context.Context, key string) (bool, error) {
	g.mu.RLock()
	_, ok := g.src[key]
	g.mu.RUnlock()

	return ok, nil
}

func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var keys []string

	for k := range g.src {
		if MatchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}

	return keys, nil
}

// Close groupcache 没有关闭操作.
func (g *GroupcacheKV) Close() error {
	return nil
}

func init() {
	Register("groupcache", NewGroupcacheKV)
}
