// Package model 定义持久化到路径存储中的记录结构.
package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
)

// FileRecord 文件元数据，存放在 files/{gradeLevel}/{id}.
// 除 DownloadCount 外上传后不再修改.
type FileRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	GradeLevel    string `json:"gradeLevel"`
	ContentType   string `json:"contentType"`
	SizeBytes     int64  `json:"sizeBytes"`
	UploadedAt    int64  `json:"uploadedAt"` // epoch 毫秒
	DownloadCount int64  `json:"downloadCount"`
	TotalChunks   int    `json:"totalChunks"`
	Checksum      string `json:"checksum,omitempty"` // 原始字节的 BLAKE3
	ChunkSize     int    `json:"chunkSize,omitempty"`
}

// UploadedTime 返回上传时间.
func (r *FileRecord) UploadedTime() time.Time {
	return time.UnixMilli(r.UploadedAt)
}

// Marshal 编码为存储值.
func (r *FileRecord) Marshal() ([]byte, error) {
	return sonic.Marshal(r)
}

// UnmarshalFileRecord 解码存储值.
func UnmarshalFileRecord(b []byte) (*FileRecord, error) {
	var r FileRecord
	if err := sonic.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode file record: %w", err)
	}

	return &r, nil
}

// ChunkRecord 单个分块，存放在 fileChunks/{parentId}/{index}.
// Index 随记录一起保存，重组时以它为准而不是存储返回的顺序.
type ChunkRecord struct {
	ParentID string `json:"parentId"`
	Index    int    `json:"index"`
	Payload  string `json:"payload"`
	Checksum string `json:"checksum,omitempty"`
}

// NewChunkRecord 创建分块并计算校验和.
func NewChunkRecord(parentID string, index int, payload string) *ChunkRecord {
	return &ChunkRecord{
		ParentID: parentID,
		Index:    index,
		Payload:  payload,
		Checksum: ChunkChecksum(payload),
	}
}

// Verify 校验 payload 与 Checksum 是否一致，未记录校验和时视为通过.
func (c *ChunkRecord) Verify() bool {
	return c.Checksum == "" || c.Checksum == ChunkChecksum(c.Payload)
}

// Marshal 编码为存储值.
func (c *ChunkRecord) Marshal() ([]byte, error) {
	return sonic.Marshal(c)
}

// UnmarshalChunkRecord 解码存储值.
func UnmarshalChunkRecord(b []byte) (*ChunkRecord, error) {
	var c ChunkRecord
	if err := sonic.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode chunk record: %w", err)
	}

	return &c, nil
}

// ChunkChecksum 返回 payload 的 xxhash64（十六进制）.
func ChunkChecksum(payload string) string {
	return strconv.FormatUint(xxhash.Sum64String(payload), 16)
}
