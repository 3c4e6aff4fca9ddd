package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/gradevault/pkg/configs"
)

// DefaultChannelBufferSize 每个订阅的输出缓冲.
const DefaultChannelBufferSize = 100

// redisFrame 是写入 Redis 频道的内容，保留 watermill 消息的 UUID 与 metadata.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

func encodeFrame(msg *message.Message) ([]byte, error) {
	return sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
}

// decodeFrame 解析帧，无法识别的内容按原始负载处理，兼容其他生产者直接 PUBLISH 的消息.
func decodeFrame(raw string) *message.Message {
	var f redisFrame
	if err := sonic.UnmarshalString(raw, &f); err != nil || f.UUID == "" {
		return message.NewMessage(watermill.NewUUID(), []byte(raw))
	}

	msg := message.NewMessage(f.UUID, f.Payload)
	for k, v := range f.Metadata {
		msg.Metadata.Set(k, v)
	}

	return msg
}

// ErrSubscriberClosed 订阅者已关闭.
var ErrSubscriberClosed = errors.New("redis subscriber closed")

// RedisPublisher 基于 Redis Pub/Sub 的 Publisher.
// Redis Pub/Sub 不保留消息，订阅前发布的消息会丢失.
type RedisPublisher struct {
	client *redis.Client
}

// RedisSubscriber 基于 Redis Pub/Sub 的 Subscriber.
type RedisSubscriber struct {
	client  *redis.Client
	logger  watermill.LoggerAdapter
	subs    []*redis.PubSub
	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func init() {
	Register(configs.MQTypeRedis, redisFactory)
}

// redisFactory Publisher 与 Subscriber 共用一个连接池，由 Subscriber 负责关闭.
func redisFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: cfg.Common.ClientID,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis mq: ping %s: %w", cfg.Redis.Addr, err)
	}

	pub := &RedisPublisher{client: rdb}
	sub := &RedisSubscriber{
		client:  rdb,
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	return pub, sub, nil
}

// Publish 每条消息编码为一个 frame.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		frame, err := encodeFrame(msg)
		if err != nil {
			return err
		}

		if err := p.client.Publish(msg.Context(), topic, frame).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", topic, err)
		}
	}

	return nil
}

// Close 由 Subscriber 负责关闭共享连接.
func (p *RedisPublisher) Close() error {
	return nil
}

// Subscribe 订阅频道，ctx 取消或 Close 后输出通道关闭.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	s.subs = append(s.subs, ps)

	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.forward(ctx, topic, ps.Channel(), out)
	}()

	return out, nil
}

// forward 逐条投递，上一条 Ack/Nack 之前不取下一条.
func (s *RedisSubscriber) forward(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	for {
		var raw *redis.Message

		select {
		case r, ok := <-in:
			if !ok {
				return
			}

			raw = r
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}

		msg := decodeFrame(raw.Payload)
		msg.SetContext(ctx)

		select {
		case out <- msg:
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			s.logger.Debug("nack on redis pub/sub, message dropped", watermill.LogFields{"topic": topic, "uuid": msg.UUID})
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	close(s.closeCh)

	var errs []error
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()

	errs = append(errs, s.client.Close())

	return errors.Join(errs...)
}
