// Package queue 定义文件传输领域的事件，以及发布与监听这些事件的工具.
//
// 概览
//   - 发布/订阅模型，上传、下载、删除与清理失败都会发出事件
//   - 统一的消息封装：Message[Payload] = Header + Payload
//   - 主题常量见 topics.go，负载结构体见 payloads.go
//   - JSON 编解码使用 bytedance/sonic
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "gv.file.uploaded",
//	    "trace_id": "optional-trace-id",
//	    "producer": "gradevault",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布/订阅示例
//
//	pub := queue.NewPublisher(mqClient.Publisher(), cfg.Events)
//	_ = pub.FileUploaded(ctx, queue.FileUploadedPayload{File: queue.FileRef{ID: id, GradeLevel: "grade7"}})
//
//	l, _ := queue.NewListener(mqClient.Subscriber(), mqClient.Logger())
//	l.Handle("invalidate", queue.TopicFileUploaded, func(m *message.Message) error {
//		env, err := queue.ParseWatermillMessage[queue.FileUploadedPayload](m)
//		...
//	})
//	_ = l.Start(ctx)
//	defer l.Stop()
//
// 注意事项
//  1. occurred_at 为 UTC，RFC3339 格式
//  2. version 便于后向兼容，消费者应忽略未知字段
//  3. Header.topic 与中间件的 Subject/Topic 重复，用于离线追踪
//  4. W3C traceparent 写入消息 metadata，消费端用 MessageContext 恢复
package queue

import (
	"context"
	"time"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yeisme/gradevault/pkg/tracing"
)

// PayloadVersionV1 当前的负载版本.
const PayloadVersionV1 = "v1"

// HeaderOption 调整事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 设置 TraceID.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	hdr := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// NewWatermillMessage 把负载封装为信封并生成 watermill 消息.
// 头部中的非空字段同时写入 metadata，方便不解码负载的中间件过滤.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	env := Message[T]{Header: NewEventHeader(topic, opts...), Payload: payload}

	data, err := sonic.Marshal(env)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)

	h := env.Header
	for k, v := range map[string]string{
		"topic":       h.Topic,
		"trace_id":    h.TraceID,
		"producer":    h.Producer,
		"version":     h.Version,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	var env Message[T]
	if err := sonic.Unmarshal(msg.Payload, &env); err != nil {
		return env, err
	}

	return env, nil
}

// MessageContext 返回带有发布端追踪信息的 context.
func MessageContext(msg *message.Message) context.Context {
	return tracing.Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
}

func injectTrace(ctx context.Context, msg *message.Message) {
	tracing.Inject(ctx, propagation.MapCarrier(msg.Metadata))
	msg.SetContext(ctx)
}
