package transfer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/metrics"
)

// UploadInput 一次上传的输入.
type UploadInput struct {
	Name        string
	GradeLevel  string
	ContentType string
	Data        io.Reader
}

// validate 检查输入，返回 *ValidationError.
func (e *Engine) validate(in UploadInput) error {
	if in.Data == nil {
		return invalid("file", "no file provided")
	}

	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "must not be empty")
	}

	if !e.HasGrade(in.GradeLevel) {
		return invalid("gradeLevel", "unknown grade "+strconv.Quote(in.GradeLevel))
	}

	if !e.cfg.Accepts(in.ContentType) {
		return invalid("contentType", "type "+strconv.Quote(in.ContentType)+" is not accepted")
	}

	return nil
}

// readAll 读取全部数据，超过 MaxFileSize 时返回校验错误.
func (e *Engine) readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if int64(len(data)) > e.cfg.MaxFileSize {
		return nil, invalid("file", fmt.Sprintf("exceeds max size of %d bytes", e.cfg.MaxFileSize))
	}

	return data, nil
}

// Upload 校验、编码并写入一个文件，成功时返回带 id 的元数据.
func (e *Engine) Upload(ctx context.Context, in UploadInput) (*model.FileRecord, error) {
	if err := e.validate(in); err != nil {
		return nil, err
	}

	data, err := e.readAll(in.Data)
	if err != nil {
		return nil, err
	}

	segments := Split(Encode(data), e.cfg.ChunkSize)

	rec := &model.FileRecord{
		Name:        strings.TrimSpace(in.Name),
		GradeLevel:  in.GradeLevel,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(data)),
		UploadedAt:  e.now().UnixMilli(),
		TotalChunks: len(segments),
		Checksum:    Digest(data),
		ChunkSize:   e.cfg.ChunkSize,
	}

	id, err := e.writeMetadata(ctx, rec)
	if err != nil {
		return nil, err
	}

	rec.ID = id

	if err := e.writeChunks(ctx, rec, segments); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("id", id).
		Str("grade", rec.GradeLevel).
		Str("name", rec.Name).
		Int64("size", rec.SizeBytes).
		Int("chunks", rec.TotalChunks).
		Msg("file uploaded")

	return rec, nil
}

// writeMetadata Push 元数据并返回生成的 id，此时还没有写任何分块.
func (e *Engine) writeMetadata(ctx context.Context, rec *model.FileRecord) (string, error) {
	b, err := rec.Marshal()
	if err != nil {
		return "", err
	}

	if e.breaker == nil {
		id, err := e.store.Push(ctx, FilesRoot+"/"+rec.GradeLevel, b)
		if err != nil {
			return "", storeWrite("push file record", err)
		}

		return id, nil
	}

	id, err := e.breaker.Execute(func() (any, error) {
		return e.store.Push(ctx, FilesRoot+"/"+rec.GradeLevel, b)
	})
	if err != nil {
		return "", storeWrite("push file record", err)
	}

	return id.(string), nil
}

// writeChunks 按索引顺序逐个写入分块，第一次失败即停止并清理.
func (e *Engine) writeChunks(ctx context.Context, rec *model.FileRecord, segments []string) error {
	base := ChunksPath(rec.ID)

	for i, seg := range segments {
		b, err := model.NewChunkRecord(rec.ID, i, seg).Marshal()
		if err == nil {
			err = e.set(ctx, base+"/"+strconv.Itoa(i), b)
		}

		if err != nil {
			e.log.Error().Err(err).Str("id", rec.ID).Int("index", i).Msg("chunk write failed")
			e.Cleanup(ctx, rec.GradeLevel, rec.ID)

			return &PartialUploadError{FileID: rec.ID, Written: i, Total: len(segments), Err: err}
		}

		metrics.ChunksWritten.Inc()
	}

	return nil
}
