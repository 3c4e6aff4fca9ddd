// Package mq 把 watermill 的 Publisher/Subscriber 按配置装配成 Client，承载文件事件.
//
// 驱动：
//   - nats，可选 JetStream
//   - redis，Pub/Sub，消息以 frame 编码保留 metadata
//   - gochannel，进程内，单节点或测试使用
//
// 示例：
//
//	client, err := mq.New(ctx, &cfg.MQ)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "gv.file.uploaded", msg)
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yeisme/gradevault/pkg/configs"
	nlog "github.com/yeisme/gradevault/pkg/log"
)

// ErrNotInitialized 客户端未初始化.
var ErrNotInitialized = errors.New("mq client not initialized")

// Opener 按配置创建一对 Publisher/Subscriber.
type Opener func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	driversMu sync.RWMutex
	drivers   = map[configs.MQType]Opener{}
)

// Register 注册驱动，同名覆盖.
func Register(t configs.MQType, open Opener) {
	driversMu.Lock()
	drivers[t] = open
	driversMu.Unlock()
}

// Drivers 返回已注册的驱动名，按字母序.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for t := range drivers {
		names = append(names, string(t))
	}

	slices.Sort(names)

	return names
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	kind       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

type options struct {
	registerer prometheus.Registerer
	logger     *zerolog.Logger
}

// Option 配置 New 的可选项.
type Option func(*options)

// WithMetrics 使用给定注册表为 Publisher/Subscriber 加上 Prometheus 指标.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithLogger 指定 watermill 使用的 logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New 按配置初始化消息队列客户端.
func New(ctx context.Context, cfg *configs.MQConfig, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		l := nlog.Component("mq")
		o.logger = &l
	}

	driversMu.RLock()
	open, ok := drivers[cfg.Type]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("mq driver %q not registered (have %s)", cfg.Type, strings.Join(Drivers(), ", "))
	}

	logger := NewLoggerAdapter(o.logger)

	pub, sub, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if o.registerer != nil && cfg.Common.EnableMetrics {
		builder := metrics.NewPrometheusMetricsBuilder(o.registerer, configs.AppName, "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	o.logger.Info().Str("type", string(cfg.Type)).Msg("mq client initialized")

	return &Client{kind: cfg.Type, publisher: pub, subscriber: sub, logger: logger}, nil
}

func (c *Client) Type() configs.MQType {
	return c.kind
}

func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

func (c *Client) Subscriber() message.Subscriber {
	return c.subscriber
}

// Logger 返回 watermill 日志适配器，供 Router 复用.
func (c *Client) Logger() watermill.LoggerAdapter {
	return c.logger
}

// Publish 逐条发布，消息带上 ctx.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return ErrNotInitialized
	}

	for _, m := range msgs {
		m.SetContext(ctx)

		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 订阅 topic.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, ErrNotInitialized
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// HealthCheck 发布一条探测消息验证 Publisher 可用.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.publisher == nil {
		return ErrNotInitialized
	}

	return c.Publish(ctx, configs.AppName+".health", message.NewMessage(watermill.NewUUID(), []byte("ping")))
}

// Close 关闭资源.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}

	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	// gochannel 的 Publisher 与 Subscriber 是同一对象，重复关闭是幂等的
	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}
