package store

import (
	"context"
	"errors"
	"strings"

	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
)

// KVStore 在扁平的 kv.KVStore 上实现路径存储，路径前加 prefix 作为键.
type KVStore struct {
	kv     kv.KVStore
	prefix string
}

var _ Store = (*KVStore)(nil)

// NewKVStore 创建 kv 后端，prefix 为空时直接使用路径作为键.
func NewKVStore(s kv.KVStore, prefix string) *KVStore {
	return &KVStore{kv: s, prefix: prefix}
}

func (s *KVStore) key(path string) string {
	if s.prefix == "" {
		return path
	}

	return s.prefix + "/" + path
}

// Get 实现 Store.
func (s *KVStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	v, err := s.kv.Get(ctx, s.key(path))
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return v, nil
}

// Set 实现 Store.
func (s *KVStore) Set(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	return s.kv.Set(ctx, s.key(path), value, 0)
}

// Push 实现 Store.
func (s *KVStore) Push(ctx context.Context, parent string, value []byte) (string, error) {
	return push(ctx, s, parent, value)
}

// Remove 实现 Store.
func (s *KVStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	keys, err := s.kv.Keys(ctx, s.key(path)+"/*")
	if err != nil {
		return err
	}

	keys = append(keys, s.key(path))

	var errs []error
	for _, k := range keys {
		errs = append(errs, s.kv.Delete(ctx, k))
	}

	return errors.Join(errs...)
}

// Children 实现 Store.
func (s *KVStore) Children(ctx context.Context, path string) ([]Node, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	base := s.key(path) + "/"

	keys, err := s.kv.Keys(ctx, base+"*")
	if err != nil {
		return nil, err
	}

	children := childSet{}

	for _, k := range keys {
		rel := strings.TrimPrefix(k, base)
		if strings.Contains(rel, "/") {
			children.add(rel, nil)
			continue
		}

		v, err := s.kv.Get(ctx, k)
		if err != nil {
			// 列出与读取之间被删除
			if kv.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		children.add(rel, v)
	}

	return children.sorted(), nil
}

// Close 实现 Store，底层 kv 客户端由创建者关闭.
func (s *KVStore) Close() error {
	return nil
}
