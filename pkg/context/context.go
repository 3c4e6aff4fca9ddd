// Package context 把请求范围内的依赖放进 context，供 handler 与中间件取用.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/gradevault/pkg/internal/storage"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	RequestIDKey      ContextKey = "requestID"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager，没有时返回 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(StorageManagerKey).(*storage.Manager)
	return mgr
}

// WithRequestID 记录请求 ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID 读取请求 ID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithTraceContext 给 logger 附加 request_id 以及当前 span 的 trace_id/span_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()

	if id := GetRequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}

	return lc.Logger()
}
