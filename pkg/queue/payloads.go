package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID，来自请求上下文中的 span.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一个文件.
type FileRef struct {
	ID          string `json:"id,omitempty"`
	GradeLevel  string `json:"grade_level"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
}

// FileUploadedPayload 上传完成.
type FileUploadedPayload struct {
	File       FileRef `json:"file"`
	Checksum   string  `json:"checksum,omitempty"`
	UploadedAt int64   `json:"uploaded_at"` // epoch 毫秒
}

// 上传失败所处阶段.
const (
	StageValidation = "validation"
	StageMetadata   = "metadata"
	StageChunks     = "chunks"
)

// FileUploadFailedPayload 上传失败，Stage 为 chunks 时 Written 表示已写入的分块数.
type FileUploadFailedPayload struct {
	File    FileRef `json:"file"`
	Stage   string  `json:"stage"`
	Written int     `json:"written,omitempty"`
	Total   int     `json:"total,omitempty"`
	Error   string  `json:"error"`
}

// FileDownloadedPayload 下载成功.
type FileDownloadedPayload struct {
	File          FileRef `json:"file"`
	DownloadCount int64   `json:"download_count"`
}

// FileDeletedPayload 文件已删除.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
}

// CleanupFailedPayload 失败上传的清理未完成.
type CleanupFailedPayload struct {
	FileID     string `json:"file_id"`
	GradeLevel string `json:"grade_level"`
	Error      string `json:"error"`
}
