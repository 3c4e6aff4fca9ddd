package transfer

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Encode 把原始字节编码为标准 base64 文本.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode 是 Encode 的逆操作.
func Decode(text string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	return b, nil
}

// Split 把文本切成不超过 size 个字符的片段，空文本返回 nil.
func Split(text string, size int) []string {
	if size <= 0 {
		panic("transfer: chunk size must be positive")
	}

	if text == "" {
		return nil
	}

	segments := make([]string, 0, (len(text)+size-1)/size)
	for start := 0; start < len(text); start += size {
		end := min(start+size, len(text))
		segments = append(segments, text[start:end])
	}

	return segments
}

// ChunkCount 返回 n 字节的文件在给定分块大小下的分块数.
func ChunkCount(n int64, size int) int {
	encoded := int64(base64.StdEncoding.EncodedLen(int(n)))

	return int((encoded + int64(size) - 1) / int64(size))
}

// Digest 返回原始字节的 BLAKE3 摘要（十六进制）.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)

	return hex.EncodeToString(sum[:])
}
