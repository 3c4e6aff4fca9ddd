package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/gradevault/pkg/cache"
	"github.com/yeisme/gradevault/pkg/queue"
	"github.com/yeisme/gradevault/pkg/tracing"
)

// NewCacheListener 订阅会改变年级列表的事件并删除对应缓存.
// 调用方负责 Start 与 Stop.
func NewCacheListener(sub message.Subscriber, logger watermill.LoggerAdapter, c *cache.Cache) (*queue.Listener, error) {
	l, err := queue.NewListener(sub, logger)
	if err != nil {
		return nil, err
	}

	for _, topic := range queue.CatalogChangeTopics {
		l.Handle("invalidate-list-cache:"+topic, topic, func(msg *message.Message) error {
			env, err := queue.ParseWatermillMessage[struct {
				File queue.FileRef `json:"file"`
			}](msg)
			if err != nil {
				// 无法解析的消息重投也没有意义
				return nil
			}

			if env.Payload.File.GradeLevel == "" {
				return nil
			}

			ctx, span := tracing.StartSpan(context.WithoutCancel(queue.MessageContext(msg)), "cache.invalidate")
			defer span.End()

			return c.Delete(ctx, ListCacheKey(env.Payload.File.GradeLevel))
		})
	}

	return l, nil
}
