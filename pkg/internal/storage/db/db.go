// Package db 通过 GORM 连接关系数据库，供 store 的 sql 后端使用.
// 方言以 build tag 注册，见 pgsql.go、mysql.go 与 sqlite_*.go.
package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/gradevault/pkg/configs"
	nlog "github.com/yeisme/gradevault/pkg/log"
)

// DialectorFactory 由 DSN 创建 dialector.
type DialectorFactory func(dsn string) gorm.Dialector

var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 注册方言，应在 init 中调用.
func RegisterDialectorFactory(dialect configs.DBType, factory DialectorFactory) {
	dialectorFactories[dialect] = factory
}

// Drivers 返回编译进来的方言，按名称排序.
func Drivers() []string {
	names := make([]string, 0, len(dialectorFactories))
	for _, d := range slices.Sorted(maps.Keys(dialectorFactories)) {
		names = append(names, string(d))
	}

	return names
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

type options struct {
	metrics  bool
	tracing  bool
	logLevel logger.LogLevel
}

// Option 调整 New 的行为.
type Option func(*options)

// WithMetrics 注册 GORM prometheus 插件.
func WithMetrics(enabled bool) Option {
	return func(o *options) { o.metrics = enabled }
}

// WithTracing 为每条语句创建 span.
func WithTracing(enabled bool) Option {
	return func(o *options) { o.tracing = enabled }
}

// WithLogLevel 设置 GORM 日志级别.
func WithLogLevel(l logger.LogLevel) Option {
	return func(o *options) { o.logLevel = l }
}

// New 按配置连接数据库并设置连接池.
func New(ctx context.Context, cfg *configs.DBConfig, opts ...Option) (*Client, error) {
	o := options{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	factory, ok := dialectorFactories[cfg.Dialect()]
	if !ok {
		return nil, fmt.Errorf("database type %q not compiled in (have %v)", cfg.Type, Drivers())
	}

	client, err := Open(ctx, factory(cfg.DSN()), o.logLevel)
	if err != nil {
		return nil, err
	}

	if sqlDB, err := client.DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	var plugins []gorm.Plugin
	if o.metrics {
		plugins = append(plugins, gormPrometheus.New(gormPrometheus.Config{
			DBName:          cfg.Database,
			RefreshInterval: 15,
		}))
	}

	if o.tracing {
		plugins = append(plugins, tracePlugin{})
	}

	for _, p := range plugins {
		if err := client.Use(p); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gorm plugin %s: %w", p.Name(), err)
		}
	}

	l := nlog.Component("db")
	l.Info().
		Str("dialect", string(cfg.Dialect())).
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("database connected")

	return client, nil
}

// Open 使用给定 dialector 打开连接并 ping，测试中可直接传入内存 SQLite.
func Open(ctx context.Context, dialector gorm.Dialector, level logger.LogLevel) (*Client, error) {
	l := nlog.Component("gorm")

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(&l, logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Client{DB: db}
	if err := c.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return c, nil
}

// HealthCheck 通过 ping 检查连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
