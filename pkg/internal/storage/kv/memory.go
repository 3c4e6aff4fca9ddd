package kv

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/yeisme/gradevault/pkg/configs"
)

type memEntry struct {
	value    []byte
	deadline time.Time // 零值表示永不过期
}

func (e memEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && !now.Before(e.deadline)
}

// MemoryKV 进程内 KV，过期键在访问时删除.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ *configs.KVConfig) (KVStore, error) {
	return &MemoryKV{data: make(map[string]memEntry), now: time.Now}, nil
}

func (m *MemoryKV) lookup(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if e.expired(m.now()) {
		m.mu.Lock()
		// 期间可能已被重新写入
		if cur, ok := m.data[key]; ok && cur.expired(m.now()) {
			delete(m.data, key)
		}
		m.mu.Unlock()

		return nil, false
	}

	return e.value, true
}

// Get 返回值的副本.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := m.lookup(key)
	if !ok {
		return nil, notFound(key)
	}

	return slices.Clone(val), nil
}

// Set 写入值的副本，ttl<=0 表示不过期.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: slices.Clone(value)}
	if e.value == nil {
		e.value = []byte{}
	}

	if ttl > 0 {
		e.deadline = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.lookup(key)
	return ok, nil
}

// Keys 返回匹配 pattern 且未过期的键，按字典序排列.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := m.now()
	keys := make([]string, 0)

	m.mu.RLock()
	for k, e := range m.data {
		if !e.expired(now) && MatchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	slices.Sort(keys)

	return keys, nil
}

func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	Register("memory", NewMemoryKV)
}
