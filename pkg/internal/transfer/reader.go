package transfer

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/store"
)

// Download 读取并重组文件，成功后下载计数加一.
// 返回的元数据已包含新的计数.
func (e *Engine) Download(ctx context.Context, grade, id string) ([]byte, *model.FileRecord, error) {
	data, rec, err := e.load(ctx, grade, id)
	if err != nil {
		return nil, nil, err
	}

	if updated, err := e.incrementDownloads(ctx, grade, id); err != nil {
		// 计数失败不影响本次下载
		e.log.Warn().Err(err).Str("id", id).Msg("increment download count failed")
	} else {
		rec = updated
	}

	return data, rec, nil
}

// Verify 完整执行重组与校验，但不修改下载计数.
func (e *Engine) Verify(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	_, rec, err := e.load(ctx, grade, id)

	return rec, err
}

// load 读取元数据与全部分块，重组、解码并校验内容摘要.
func (e *Engine) load(ctx context.Context, grade, id string) ([]byte, *model.FileRecord, error) {
	rec, err := e.Get(ctx, grade, id)
	if err != nil {
		return nil, nil, err
	}

	nodes, err := e.store.Children(ctx, ChunksPath(id))
	if err != nil {
		return nil, nil, err
	}

	text, err := Reassemble(id, rec.TotalChunks, nodes)
	if err != nil {
		return nil, nil, err
	}

	data, err := Decode(text)
	if err != nil {
		return nil, nil, reassemblyFailed(id, "%v", err)
	}

	if int64(len(data)) != rec.SizeBytes {
		return nil, nil, reassemblyFailed(id, "decoded %d bytes, expected %d", len(data), rec.SizeBytes)
	}

	if e.cfg.VerifyDigest && rec.Checksum != "" && Digest(data) != rec.Checksum {
		return nil, nil, reassemblyFailed(id, "content digest mismatch")
	}

	return data, rec, nil
}

// incrementDownloads 读-改-写元数据的下载计数，并发时后写覆盖先写.
// 进程内与 Delete 互斥；其他节点的删除由写后检查分块发现，此时撤销写入并返回 ErrNotFound.
func (e *Engine) incrementDownloads(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	defer e.lockFile(id)()

	rec, err := e.Get(ctx, grade, id)
	if err != nil {
		return nil, err
	}

	rec.DownloadCount++

	b, err := rec.Marshal()
	if err != nil {
		return nil, err
	}

	if err := e.set(ctx, FilePath(grade, id), b); err != nil {
		return nil, storeWrite("update download count", err)
	}

	if rec.TotalChunks == 0 {
		return rec, nil
	}

	nodes, err := e.store.Children(ctx, ChunksPath(id))
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		if err := e.store.Remove(ctx, FilePath(grade, id)); err != nil {
			return nil, storeWrite("undo download count", err)
		}

		e.log.Warn().Str("grade", grade).Str("id", id).Msg("file deleted during download")

		return nil, ErrNotFound
	}

	return rec, nil
}

// Reassemble 解码 fileChunks/{id} 下的节点，按记录内的 index 排序并校验，返回拼接后的 base64 文本.
// 校验内容：数量等于 total、索引恰为 0..total-1、节点 key 与记录 index 一致、分块校验和一致.
func Reassemble(fileID string, total int, nodes []store.Node) (string, error) {
	chunks := make([]*model.ChunkRecord, 0, len(nodes))

	for _, n := range nodes {
		c, err := model.UnmarshalChunkRecord(n.Value)
		if err != nil {
			return "", reassemblyFailed(fileID, "chunk %s: %v", n.Key, err)
		}

		if n.Key != strconv.Itoa(c.Index) {
			return "", reassemblyFailed(fileID, "chunk stored at %s claims index %d", n.Key, c.Index)
		}

		if c.ParentID != "" && c.ParentID != fileID {
			return "", reassemblyFailed(fileID, "chunk %d belongs to %s", c.Index, c.ParentID)
		}

		if !c.Verify() {
			return "", reassemblyFailed(fileID, "chunk %d checksum mismatch", c.Index)
		}

		chunks = append(chunks, c)
	}

	if len(chunks) != total {
		return "", reassemblyFailed(fileID, "found %d chunks, expected %d", len(chunks), total)
	}

	SortByIndex(chunks)

	for i, c := range chunks {
		if c.Index != i {
			return "", reassemblyFailed(fileID, "chunk index %d at position %d", c.Index, i)
		}
	}

	return Concat(chunks), nil
}

// SortByIndex 按记录内的 index 升序排序.
func SortByIndex(chunks []*model.ChunkRecord) {
	slices.SortFunc(chunks, func(a, b *model.ChunkRecord) int {
		return a.Index - b.Index
	})
}

// Concat 按切片顺序直接拼接 payload，不做排序与校验.
func Concat(chunks []*model.ChunkRecord) string {
	var sb strings.Builder

	for _, c := range chunks {
		sb.WriteString(c.Payload)
	}

	return sb.String()
}
