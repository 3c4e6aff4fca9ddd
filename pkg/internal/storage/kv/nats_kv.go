package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/gradevault/pkg/configs"
)

// NATSKV 基于 NATS JetStream KeyValue 的 KV 实现.
// JetStream 的 bucket 只支持桶级 TTL，键级 TTL 使用 ttl.go 中的包装并在读取时惰性删除.
// NATS 键只允许 [-/_=.a-zA-Z0-9]，其他字节（包括邮箱中的 @ 与缓存键中的 :）以 =XX 转义.
type NATSKV struct {
	kv     nats.KeyValue
	bucket string
	conn   *nats.Conn
}

// NewNATSKV 创建 NATS KV 实例.
func NewNATSKV(_ context.Context, cfg *configs.KVConfig) (KVStore, error) {
	natsConfig := &cfg.NATS

	opts := []nats.Option{nats.Name(configs.AppName + "-kv")}
	if natsConfig.User != "" {
		opts = append(opts, nats.UserInfo(natsConfig.User, natsConfig.Password))
	}

	nc, err := nats.Connect(natsConfig.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats kv: connect %s: %w", natsConfig.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: jetstream: %w", err)
	}

	kv, err := js.KeyValue(natsConfig.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: natsConfig.Bucket})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats kv: bucket %s: %w", natsConfig.Bucket, err)
	}

	return &NATSKV{kv: kv, bucket: natsConfig.Bucket, conn: nc}, nil
}

// entry 读取并解包，过期时惰性删除并返回 (nil, false).
func (n *NATSKV) entry(key string) ([]byte, bool, error) {
	e, err := n.kv.Get(natsKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("nats get %s: %w", key, err)
	}

	val, expired, _, derr := decodeWithTTL(e.Value(), time.Now())
	if derr != nil {
		return nil, false, derr
	}

	if expired {
		_ = n.kv.Delete(natsKey(key))
		return nil, false, nil
	}

	return val, true, nil
}

func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	val, ok, err := n.entry(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound(key)
	}

	return val, nil
}

func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, _, err := encodeWithTTL(value, ttl)
	if err != nil {
		return err
	}

	if _, err = n.kv.Put(natsKey(key), encoded); err != nil {
		return fmt.Errorf("nats put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(_ context.Context, key string) error {
	if err := n.kv.Delete(natsKey(key)); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("nats delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := n.entry(key)
	return ok, err
}

func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := n.kv.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("nats keys: %w", err)
	}

	result := make([]string, 0, len(keys))

	for _, raw := range keys {
		key := plainKey(raw)
		if !MatchPattern(pattern, key) {
			continue
		}

		if _, ok, e := n.entry(key); e == nil && ok {
			result = append(result, key)
		}
	}

	return result, nil
}

func natsKey(key string) string {
	var b strings.Builder

	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '/':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "=%02X", c)
		}
	}

	return b.String()
}

func plainKey(key string) string {
	if !strings.Contains(key, "=") {
		return key
	}

	var b strings.Builder

	for i := 0; i < len(key); i++ {
		if key[i] == '=' && i+2 < len(key) {
			if v, err := strconv.ParseUint(key[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2

				continue
			}
		}

		b.WriteByte(key[i])
	}

	return b.String()
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	Register("nats", NewNATSKV)
}
