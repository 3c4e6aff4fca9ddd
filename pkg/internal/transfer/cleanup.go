package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/gradevault/pkg/metrics"
)

// cleanupTimeout 清理不受原请求取消影响，但有独立的超时.
const cleanupTimeout = 30 * time.Second

// Cleanup 尽力删除 files/{grade}/{id} 与 fileChunks/{id}.
// 失败时记录日志、计数并回调，不重试，也不改变上传返回的错误.
func (e *Engine) Cleanup(ctx context.Context, grade, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := errors.Join(
		e.store.Remove(ctx, FilePath(grade, id)),
		e.store.Remove(ctx, ChunksPath(id)),
	)
	if err == nil {
		e.log.Info().Str("id", id).Str("grade", grade).Msg("partial upload cleaned up")
		return
	}

	e.log.Error().Err(err).Str("id", id).Str("grade", grade).Msg("cleanup after failed upload failed")
	metrics.CleanupFailures.Inc()

	if e.onCleanupFailure != nil {
		e.onCleanupFailure(ctx, CleanupFailure{FileID: id, GradeLevel: grade, Err: err})
	}
}
