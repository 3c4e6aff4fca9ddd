package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/tracing"
)

// -------------------------- 基于业务封装 events --------------------------

// Publisher 按事件开关发布文件领域事件，关闭的主题直接忽略.
type Publisher struct {
	pub message.Publisher
	cfg configs.EventsConfig
}

// NewPublisher 创建事件发布器，pub 为 nil 时所有发布都是空操作.
func NewPublisher(pub message.Publisher, cfg configs.EventsConfig) *Publisher {
	return &Publisher{pub: pub, cfg: cfg}
}

func (p *Publisher) enabled(topic string) bool {
	if p == nil || p.pub == nil || !p.cfg.Enabled {
		return false
	}

	switch topic {
	case TopicFileUploaded:
		return p.cfg.File.Uploaded
	case TopicFileUploadFailed:
		return p.cfg.File.UploadFailed
	case TopicFileDownloaded:
		return p.cfg.File.Downloaded
	case TopicFileDeleted:
		return p.cfg.File.Deleted
	case TopicCleanupFailed:
		return p.cfg.File.CleanupFailed
	default:
		return true
	}
}

func publish[T any](ctx context.Context, p *Publisher, topic string, payload T) error {
	opts := []HeaderOption{WithProducer(p.cfg.Producer)}
	if id := tracing.TraceID(ctx); id != "" {
		opts = append(opts, WithTraceID(id))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	injectTrace(ctx, msg)

	return p.pub.Publish(topic, msg)
}

// FileUploaded 发布 gv.file.uploaded.
func (p *Publisher) FileUploaded(ctx context.Context, payload FileUploadedPayload) error {
	if !p.enabled(TopicFileUploaded) {
		return nil
	}

	return publish(ctx, p, TopicFileUploaded, payload)
}

// FileUploadFailed 发布 gv.file.upload_failed.
func (p *Publisher) FileUploadFailed(ctx context.Context, payload FileUploadFailedPayload) error {
	if !p.enabled(TopicFileUploadFailed) {
		return nil
	}

	return publish(ctx, p, TopicFileUploadFailed, payload)
}

// FileDownloaded 发布 gv.file.downloaded.
func (p *Publisher) FileDownloaded(ctx context.Context, payload FileDownloadedPayload) error {
	if !p.enabled(TopicFileDownloaded) {
		return nil
	}

	return publish(ctx, p, TopicFileDownloaded, payload)
}

// FileDeleted 发布 gv.file.deleted.
func (p *Publisher) FileDeleted(ctx context.Context, payload FileDeletedPayload) error {
	if !p.enabled(TopicFileDeleted) {
		return nil
	}

	return publish(ctx, p, TopicFileDeleted, payload)
}

// CleanupFailed 发布 gv.cleanup.failed.
func (p *Publisher) CleanupFailed(ctx context.Context, payload CleanupFailedPayload) error {
	if !p.enabled(TopicCleanupFailed) {
		return nil
	}

	return publish(ctx, p, TopicCleanupFailed, payload)
}

// ParseFileUploaded 将 Watermill 消息解析为强类型 Envelope.
func ParseFileUploaded(msg *message.Message) (Message[FileUploadedPayload], error) {
	return ParseWatermillMessage[FileUploadedPayload](msg)
}

// ParseFileDeleted 将 Watermill 消息解析为强类型 Envelope.
func ParseFileDeleted(msg *message.Message) (Message[FileDeletedPayload], error) {
	return ParseWatermillMessage[FileDeletedPayload](msg)
}
