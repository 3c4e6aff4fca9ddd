// Package service 组合分块传输、事件、缓存与指标，向 handler 与命令行提供文件与管理员操作.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yeisme/gradevault/pkg/cache"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
	nlog "github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/metrics"
	"github.com/yeisme/gradevault/pkg/queue"
	"github.com/yeisme/gradevault/pkg/tracing"
)

// ListCachePrefix 年级列表缓存键前缀，完整键为 files:{grade}.
const ListCachePrefix = "files:"

// FileService 文件操作入口.
type FileService struct {
	engine  *transfer.Engine
	events  *queue.Publisher
	cache   *cache.Cache
	catalog configs.CatalogConfig
	log     zerolog.Logger
}

// NewFileService 创建文件服务，events 与 c 可以为 nil.
func NewFileService(engine *transfer.Engine, events *queue.Publisher, c *cache.Cache, catalog configs.CatalogConfig) *FileService {
	return &FileService{
		engine:  engine,
		events:  events,
		cache:   c,
		catalog: catalog,
		log:     nlog.Component("file-service"),
	}
}

// ListCacheKey 返回年级列表的缓存键.
func ListCacheKey(grade string) string {
	return ListCachePrefix + grade
}

// Grades 返回年级目录.
func (s *FileService) Grades() []configs.Grade {
	return s.catalog.Grades
}

// ChunkSize 返回当前分块大小.
func (s *FileService) ChunkSize() int {
	return s.engine.ChunkSize()
}

func (s *FileService) listTTL() time.Duration {
	return time.Duration(s.catalog.ListCacheTTL) * time.Second
}

// List 按上传时间倒序列出年级下的文件，开启缓存时经过缓存.
func (s *FileService) List(ctx context.Context, grade string) ([]*model.FileRecord, error) {
	if s.cache == nil || s.listTTL() <= 0 || !s.engine.HasGrade(grade) {
		return s.engine.List(ctx, grade)
	}

	return cache.GetOrSet(ctx, s.cache, ListCacheKey(grade), func() ([]*model.FileRecord, error) {
		return s.engine.List(ctx, grade)
	}, s.listTTL())
}

// Get 返回文件元数据.
func (s *FileService) Get(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	return s.engine.Get(ctx, grade, id)
}

// Upload 上传单个文件.
func (s *FileService) Upload(ctx context.Context, in transfer.UploadInput) (*model.FileRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "file.upload")
	defer span.End()

	span.SetAttributes(
		attribute.String("grade", in.GradeLevel),
		attribute.String("name", in.Name),
	)

	rec, err := s.engine.Upload(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.UploadsTotal.WithLabelValues(in.GradeLevel, metrics.ResultError).Inc()
		s.publishUploadFailed(ctx, in, err)

		return nil, err
	}

	span.SetAttributes(attribute.String("id", rec.ID), attribute.Int("chunks", rec.TotalChunks))
	metrics.UploadsTotal.WithLabelValues(rec.GradeLevel, metrics.ResultOK).Inc()
	metrics.UploadBytes.Observe(float64(rec.SizeBytes))

	s.invalidate(ctx, rec.GradeLevel)

	if err := s.events.FileUploaded(ctx, queue.FileUploadedPayload{
		File:       fileRef(rec),
		Checksum:   rec.Checksum,
		UploadedAt: rec.UploadedAt,
	}); err != nil {
		s.log.Warn().Err(err).Str("id", rec.ID).Msg("publish uploaded event failed")
	}

	return rec, nil
}

func (s *FileService) publishUploadFailed(ctx context.Context, in transfer.UploadInput, cause error) {
	payload := queue.FileUploadFailedPayload{
		File:  queue.FileRef{GradeLevel: in.GradeLevel, Name: in.Name, ContentType: in.ContentType},
		Stage: queue.StageMetadata,
		Error: cause.Error(),
	}

	var perr *transfer.PartialUploadError

	switch {
	case errors.Is(cause, transfer.ErrValidation):
		payload.Stage = queue.StageValidation
	case errors.As(cause, &perr):
		payload.Stage = queue.StageChunks
		payload.File.ID = perr.FileID
		payload.Written = perr.Written
		payload.Total = perr.Total
	}

	if err := s.events.FileUploadFailed(ctx, payload); err != nil {
		s.log.Warn().Err(err).Msg("publish upload_failed event failed")
	}
}

// Download 重组文件并增加下载计数.
func (s *FileService) Download(ctx context.Context, grade, id string) ([]byte, *model.FileRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "file.download")
	defer span.End()

	span.SetAttributes(attribute.String("grade", grade), attribute.String("id", id))

	data, rec, err := s.engine.Download(ctx, grade, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.DownloadsTotal.WithLabelValues(grade, metrics.ResultError).Inc()

		return nil, nil, err
	}

	metrics.DownloadsTotal.WithLabelValues(grade, metrics.ResultOK).Inc()

	if err := s.events.FileDownloaded(ctx, queue.FileDownloadedPayload{
		File:          fileRef(rec),
		DownloadCount: rec.DownloadCount,
	}); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("publish downloaded event failed")
	}

	return data, rec, nil
}

// DataURI 以 data:<type>;base64,<payload> 形式返回文件内容，同样计入下载.
func (s *FileService) DataURI(ctx context.Context, grade, id string) (string, *model.FileRecord, error) {
	data, rec, err := s.Download(ctx, grade, id)
	if err != nil {
		return "", nil, err
	}

	ct := rec.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	return "data:" + ct + ";base64," + transfer.Encode(data), rec, nil
}

// Verify 校验文件能否完整重组，不计入下载.
func (s *FileService) Verify(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	return s.engine.Verify(ctx, grade, id)
}

// Delete 删除文件与全部分块.
func (s *FileService) Delete(ctx context.Context, grade, id string) error {
	ctx, span := tracing.StartSpan(ctx, "file.delete")
	defer span.End()

	span.SetAttributes(attribute.String("grade", grade), attribute.String("id", id))

	rec, err := s.engine.Delete(ctx, grade, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	s.invalidate(ctx, grade)

	if err := s.events.FileDeleted(ctx, queue.FileDeletedPayload{File: fileRef(rec)}); err != nil {
		s.log.Warn().Err(err).Str("id", id).Msg("publish deleted event failed")
	}

	return nil
}

// CleanupFailedHook 把清理失败转为事件，作为 transfer.WithCleanupFailureHook 的回调.
func CleanupFailedHook(events *queue.Publisher) func(ctx context.Context, f transfer.CleanupFailure) {
	log := nlog.Component("file-service")

	return func(ctx context.Context, f transfer.CleanupFailure) {
		if err := events.CleanupFailed(ctx, queue.CleanupFailedPayload{
			FileID:     f.FileID,
			GradeLevel: f.GradeLevel,
			Error:      f.Err.Error(),
		}); err != nil {
			log.Warn().Err(err).Str("id", f.FileID).Msg("publish cleanup_failed event failed")
		}
	}
}

// invalidate 删除本地缓存的年级列表，其他节点通过事件失效.
func (s *FileService) invalidate(ctx context.Context, grade string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, ListCacheKey(grade)); err != nil {
		s.log.Warn().Err(err).Str("grade", grade).Msg("invalidate list cache failed")
	}
}

func fileRef(rec *model.FileRecord) queue.FileRef {
	return queue.FileRef{
		ID:          rec.ID,
		GradeLevel:  rec.GradeLevel,
		Name:        rec.Name,
		ContentType: rec.ContentType,
		SizeBytes:   rec.SizeBytes,
		TotalChunks: rec.TotalChunks,
	}
}
