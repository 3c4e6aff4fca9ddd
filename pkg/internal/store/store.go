// Package store 提供层级路径寻址的存储抽象.
//
// 路径由 / 分隔，例如 files/grade7/{id}、fileChunks/{id}/0.
// 只有叶子节点携带值；Children 会把仅作为前缀存在的中间节点也列出，其 Value 为 nil.
//
// 后端：
//   - kv: 任意 kv.KVStore
//   - sql: gorm 的 nodes 表
//   - s3: minio 对象，key 即路径
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// ErrNotFound 路径不存在.
var ErrNotFound = errors.New("path not found")

// Node 路径下的一个直接子节点.
type Node struct {
	Key   string
	Value []byte
}

// Store 路径寻址存储.
type Store interface {
	// Get 读取叶子节点的值，不存在时返回 ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// Set 写入值，后写覆盖先写.
	Set(ctx context.Context, path string, value []byte) error
	// Push 在 parent 下以新生成的 id 写入值并返回 id，id 按时间递增.
	Push(ctx context.Context, parent string, value []byte) (string, error)
	// Remove 删除节点及其所有后代，不存在不视为错误.
	Remove(ctx context.Context, path string) error
	// Children 列出直接子节点，按 Key 排序.
	Children(ctx context.Context, path string) ([]Node, error)
	// Close 关闭底层连接.
	Close() error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID 生成时间有序的 ULID.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// IDTime 解析 NewID 生成的 id 中的时间，非 ULID 返回 false.
func IDTime(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}

	return ulid.Time(u.Time()), true
}

type setter interface {
	Set(ctx context.Context, path string, value []byte) error
}

// push 是各后端共用的 Push 实现.
func push(ctx context.Context, s setter, parent string, value []byte) (string, error) {
	if err := ValidatePath(parent); err != nil {
		return "", err
	}

	id := NewID()
	if err := s.Set(ctx, Join(parent, id), value); err != nil {
		return "", err
	}

	return id, nil
}

// childSet 按直接子节点聚合后代路径.
type childSet map[string]*Node

// add 记录 rel（相对 parent 的路径）对应的直接子节点，rel 无 / 时为叶子.
func (c childSet) add(rel string, value []byte) {
	key, _, nested := strings.Cut(rel, "/")
	if key == "" {
		return
	}

	n, ok := c[key]
	if !ok {
		n = &Node{Key: key}
		c[key] = n
	}

	if !nested {
		n.Value = value
	}
}

func (c childSet) sorted() []Node {
	out := make([]Node, 0, len(c))
	for _, n := range c {
		out = append(out, *n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out
}
