// Package types 定义 HTTP 请求与响应结构.
package types

import "github.com/yeisme/gradevault/pkg/internal/model"

// FileURI 路径参数 /files/:grade/:id.
type FileURI struct {
	Grade string `uri:"grade" rule:"segment"`
	ID    string `uri:"id"    rule:"segment"`
}

// GradeURI 路径参数 /files/:grade.
type GradeURI struct {
	Grade string `uri:"grade" rule:"segment"`
}

// FileResponse 文件元数据.
type FileResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	GradeLevel    string `json:"gradeLevel"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
	UploadedAt    int64  `json:"uploadedAt"`
	DownloadCount int64  `json:"downloadCount"`
	TotalChunks   int    `json:"totalChunks"`
	Checksum      string `json:"checksum,omitempty"`
}

// NewFileResponse 由存储记录构造响应.
func NewFileResponse(rec *model.FileRecord) FileResponse {
	return FileResponse{
		ID:            rec.ID,
		Name:          rec.Name,
		GradeLevel:    rec.GradeLevel,
		ContentType:   rec.ContentType,
		SizeBytes:     rec.SizeBytes,
		UploadedAt:    rec.UploadedAt,
		DownloadCount: rec.DownloadCount,
		TotalChunks:   rec.TotalChunks,
		Checksum:      rec.Checksum,
	}
}

// ListFilesResponse 年级文件列表，按上传时间倒序.
type ListFilesResponse struct {
	Grade string         `json:"grade"`
	Count int            `json:"count"`
	Files []FileResponse `json:"files"`
}

// UploadResultItem 单个文件的上传结果.
type UploadResultItem struct {
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
	Error       string `json:"error,omitempty"`
}

// UploadFilesResponse 多文件上传结果.
type UploadFilesResponse struct {
	Grade     string             `json:"grade"`
	Total     int                `json:"total"`
	Completed int                `json:"completed"`
	Succeeded int                `json:"succeeded"`
	Results   []UploadResultItem `json:"results"`
}

// ContentResponse data URI 形式的文件内容.
type ContentResponse struct {
	FileResponse

	DataURI string `json:"dataUri"`
}

// VerifyResponse 重组校验结果.
type VerifyResponse struct {
	FileResponse

	Verified bool `json:"verified"`
}
