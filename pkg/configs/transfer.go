package configs

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultChunkSize 单个分块的最大字符数（base64 文本），略小于存储单条记录上限.
	DefaultChunkSize = 950000
	// DefaultMaxFileSize 单个文件的最大字节数.
	DefaultMaxFileSize = 100 << 20
)

// TransferConfig 分块上传与下载配置.
type TransferConfig struct {
	ChunkSize    int      `mapstructure:"chunk_size"    rule:"min=4,max=16777216"`
	MaxFileSize  int64    `mapstructure:"max_file_size" rule:"min=1"`
	AcceptTypes  []string `mapstructure:"accept_types"  rule:"dive,mediatype"`
	VerifyDigest bool     `mapstructure:"verify_digest"`
	// BreakerFailures 连续写入失败达到该次数后短路后续写入，0 表示关闭
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
	BreakerTimeout  int    `mapstructure:"breaker_timeout_seconds" rule:"min=1"`
}

// Accepts 判断内容类型是否允许上传，支持 image/* 形式的通配.
func (c *TransferConfig) Accepts(contentType string) bool {
	if len(c.AcceptTypes) == 0 {
		return true
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	for _, t := range c.AcceptTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == ct {
			return true
		}

		if prefix, ok := strings.CutSuffix(t, "/*"); ok && strings.HasPrefix(ct, prefix+"/") {
			return true
		}
	}

	return false
}

func (c *TransferConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("transfer.chunk_size", DefaultChunkSize)
	v.SetDefault("transfer.max_file_size", DefaultMaxFileSize)
	v.SetDefault("transfer.accept_types", []string{
		"application/pdf",
		"image/*",
		"video/*",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	})
	v.SetDefault("transfer.verify_digest", true)
	v.SetDefault("transfer.breaker_failures", 0)
	v.SetDefault("transfer.breaker_timeout_seconds", 30)
}
