package service

import (
	"context"
	"io"

	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
)

// UploadFile 多文件上传中的一个文件.
type UploadFile struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadResult 单个文件的上传结果，Err 为 nil 时 Record 有效.
type UploadResult struct {
	Name   string
	Record *model.FileRecord
	Err    error
}

// Progress 每处理完一个文件回调一次.
type Progress struct {
	Done   int
	Total  int
	Result UploadResult
}

// UploadMany 逐个上传文件，一个失败不影响后续文件.
func (s *FileService) UploadMany(ctx context.Context, grade string, files []UploadFile, progress func(Progress)) []UploadResult {
	results := make([]UploadResult, 0, len(files))

	for i, f := range files {
		res := s.uploadOne(ctx, grade, f)
		results = append(results, res)

		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(files), Result: res})
		}
	}

	return results
}

func (s *FileService) uploadOne(ctx context.Context, grade string, f UploadFile) UploadResult {
	res := UploadResult{Name: f.Name}

	in := transfer.UploadInput{Name: f.Name, GradeLevel: grade, ContentType: f.ContentType}

	if f.Open != nil {
		rc, err := f.Open()
		if err != nil {
			res.Err = err
			return res
		}
		defer rc.Close()

		in.Data = rc
	}

	res.Record, res.Err = s.Upload(ctx, in)

	return res
}
