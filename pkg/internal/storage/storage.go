// Package storage 聚合应用使用的所有存储资源：KV、数据库、对象存储、消息队列，以及在其上构建的路径存储.
//
// Example:
//
//	mgr, err := storage.New(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	st := mgr.GetStore()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/gradevault/pkg/configs"
	dbc "github.com/yeisme/gradevault/pkg/internal/storage/db"
	kvc "github.com/yeisme/gradevault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/gradevault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/gradevault/pkg/internal/storage/s3"
	"github.com/yeisme/gradevault/pkg/internal/store"
	nlog "github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/metrics"
)

// ErrNotConfigured 当前配置未启用该组件.
var ErrNotConfigured = errors.New("component not configured")

// Manager 聚合所有存储资源.
// DB 仅在 store.backend=sql 时创建，S3 仅在 store.backend=s3 时创建.
type Manager struct {
	KV    *kvc.Client
	DB    *dbc.Client
	S3    *s3c.Client
	MQ    *mqc.Client
	Store store.Store
}

// New 按配置初始化所有存储资源，任何一步失败都会关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}
	log := nlog.Component("storage")

	fail := func(err error) (*Manager, error) {
		if cerr := m.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close partially initialized storage")
		}

		return nil, err
	}

	kv, err := kvc.New(ctx, &cfg.KV)
	if err != nil {
		return fail(fmt.Errorf("init kv (%s): %w", cfg.KV.Type, err))
	}

	m.KV = kv

	mqOpts := []mqc.Option{}
	if cfg.Metrics.Enabled {
		mqOpts = append(mqOpts, mqc.WithMetrics(metrics.GetRegistry()))
	}

	mq, err := mqc.New(ctx, &cfg.MQ, mqOpts...)
	if err != nil {
		return fail(err)
	}

	m.MQ = mq

	switch cfg.Store.Backend {
	case configs.StoreBackendKV:
		m.Store = store.NewKVStore(kv, cfg.Store.KeyPrefix)
	case configs.StoreBackendSQL:
		db, err := dbc.New(ctx, &cfg.DB,
			dbc.WithMetrics(cfg.Metrics.Enabled),
			dbc.WithTracing(cfg.Tracing.Enabled),
		)
		if err != nil {
			return fail(err)
		}

		m.DB = db

		st, err := store.NewSQLStore(ctx, db.DB, cfg.Store.AutoMigrate)
		if err != nil {
			return fail(err)
		}

		m.Store = st
	case configs.StoreBackendS3:
		s3, err := s3c.New(ctx, &cfg.S3)
		if err != nil {
			return fail(err)
		}

		m.S3 = s3
		m.Store = store.NewS3Store(s3.Client, s3.Bucket(), cfg.Store.KeyPrefix)
	default:
		return fail(fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend))
	}

	log.Info().
		Str("store", string(cfg.Store.Backend)).
		Str("kv", cfg.KV.Type).
		Str("mq", string(cfg.MQ.Type)).
		Msg("storage manager initialized")

	return m, nil
}

// NewWithStore 用现成的路径存储和消息队列组装 Manager，主要用于测试和命令行工具.
func NewWithStore(st store.Store, mq *mqc.Client, kv *kvc.Client) *Manager {
	return &Manager{Store: st, MQ: mq, KV: kv}
}

// GetStore 获取路径存储.
func (m *Manager) GetStore() store.Store {
	return m.Store
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// healthPath 仅用于探测，不会被写入.
const healthPath = "health/probe"

// CheckStore 读取一个探测路径，未命中视为健康.
func (m *Manager) CheckStore(ctx context.Context) error {
	if m.Store == nil {
		return ErrNotConfigured
	}

	if _, err := m.Store.Get(ctx, healthPath); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return nil
}

// CheckDB 检查数据库连接.
func (m *Manager) CheckDB(ctx context.Context) error {
	if m.DB == nil {
		return ErrNotConfigured
	}

	return m.DB.HealthCheck(ctx)
}

// CheckS3 检查对象存储连接.
func (m *Manager) CheckS3(ctx context.Context) error {
	if m.S3 == nil {
		return ErrNotConfigured
	}

	return m.S3.HealthCheck(ctx)
}

// CheckMQ 检查消息队列.
func (m *Manager) CheckMQ(ctx context.Context) error {
	if m.MQ == nil {
		return ErrNotConfigured
	}

	return m.MQ.HealthCheck(ctx)
}

// Close 关闭所有已打开的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.Store != nil {
		errs = append(errs, m.Store.Close())
	}

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	return errors.Join(errs...)
}
