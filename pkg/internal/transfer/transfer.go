// Package transfer 实现文件的分块上传与重组下载.
//
// 上传：原始字节编码为 base64，切成不超过 ChunkSize 个字符的分块；
// 先 Push 元数据 files/{grade}/{id}，再按索引顺序逐个写入 fileChunks/{id}/{index}.
// 任何一步失败都会尽力删除已写入的数据.
//
// 下载：读取 fileChunks/{id} 下所有分块，按记录内的 index 排序并校验后拼接解码.
package transfer

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/store"
	nlog "github.com/yeisme/gradevault/pkg/log"
)

const (
	// FilesRoot 文件元数据根路径.
	FilesRoot = "files"
	// ChunksRoot 文件分块根路径.
	ChunksRoot = "fileChunks"

	lockStripes = 64
)

// FilePath 返回 files/{grade}/{id}.
func FilePath(grade, id string) string {
	return store.Join(FilesRoot, grade, id)
}

// ChunksPath 返回 fileChunks/{id}.
func ChunksPath(id string) string {
	return store.Join(ChunksRoot, id)
}

// CleanupFailure 清理失败的上下文，交给 OnCleanupFailure 回调.
type CleanupFailure struct {
	FileID     string
	GradeLevel string
	Err        error
}

// Engine 在路径存储上执行分块上传、下载与删除.
type Engine struct {
	store   store.Store
	cfg     configs.TransferConfig
	grades  []string
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
	now     func() time.Time

	// 同一文件的删除与计数更新互斥
	locks [lockStripes]sync.Mutex

	onCleanupFailure func(ctx context.Context, f CleanupFailure)
}

// Option 配置 Engine.
type Option func(*Engine)

// WithLogger 指定 logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock 替换时间来源，测试中使用.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCleanupFailureHook 清理失败时回调，不影响返回给调用方的错误.
func WithCleanupFailureHook(fn func(ctx context.Context, f CleanupFailure)) Option {
	return func(e *Engine) { e.onCleanupFailure = fn }
}

// New 创建 Engine，grades 为允许上传的年级 key.
func New(st store.Store, cfg configs.TransferConfig, grades []string, opts ...Option) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = configs.DefaultChunkSize
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = configs.DefaultMaxFileSize
	}

	e := &Engine{
		store:  st,
		cfg:    cfg,
		grades: slices.Clone(grades),
		log:    nlog.Component("transfer"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if cfg.BreakerFailures > 0 {
		e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "store-writes",
			Timeout: time.Duration(cfg.BreakerTimeout) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				e.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store breaker state changed")
			},
		})
	}

	return e
}

// ChunkSize 返回分块大小.
func (e *Engine) ChunkSize() int {
	return e.cfg.ChunkSize
}

// HasGrade 判断年级是否允许.
func (e *Engine) HasGrade(grade string) bool {
	return slices.Contains(e.grades, grade)
}

// Store 返回底层路径存储.
func (e *Engine) Store() store.Store {
	return e.store
}

func (e *Engine) lockFile(id string) func() {
	mu := &e.locks[xxhash.Sum64String(id)%lockStripes]
	mu.Lock()

	return mu.Unlock
}

// set 写入一个路径，开启熔断时经过 breaker.
func (e *Engine) set(ctx context.Context, path string, value []byte) error {
	if e.breaker == nil {
		return e.store.Set(ctx, path, value)
	}

	_, err := e.breaker.Execute(func() (any, error) {
		return nil, e.store.Set(ctx, path, value)
	})

	return err
}

// Get 读取文件元数据.
func (e *Engine) Get(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	if err := e.checkRef(grade, id); err != nil {
		return nil, err
	}

	b, err := e.store.Get(ctx, FilePath(grade, id))
	if err != nil {
		return nil, err
	}

	rec, err := model.UnmarshalFileRecord(b)
	if err != nil {
		return nil, err
	}

	rec.ID = id
	rec.GradeLevel = grade

	return rec, nil
}

// List 按上传时间倒序列出年级下的文件.
func (e *Engine) List(ctx context.Context, grade string) ([]*model.FileRecord, error) {
	if !e.HasGrade(grade) {
		return nil, invalid("gradeLevel", "unknown grade "+grade)
	}

	nodes, err := e.store.Children(ctx, store.Join(FilesRoot, grade))
	if err != nil {
		return nil, err
	}

	records := make([]*model.FileRecord, 0, len(nodes))

	for _, n := range nodes {
		if n.Value == nil {
			continue
		}

		rec, err := model.UnmarshalFileRecord(n.Value)
		if err != nil {
			e.log.Warn().Err(err).Str("grade", grade).Str("id", n.Key).Msg("skip unreadable file record")
			continue
		}

		rec.ID = n.Key
		rec.GradeLevel = grade
		records = append(records, rec)
	}

	SortNewestFirst(records)

	return records, nil
}

// SortNewestFirst 按 UploadedAt 倒序排序，时间相同时按 id 倒序.
func SortNewestFirst(records []*model.FileRecord) {
	slices.SortStableFunc(records, func(a, b *model.FileRecord) int {
		if a.UploadedAt != b.UploadedAt {
			if a.UploadedAt > b.UploadedAt {
				return -1
			}

			return 1
		}

		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
}

// Delete 删除文件元数据与所有分块.
func (e *Engine) Delete(ctx context.Context, grade, id string) (*model.FileRecord, error) {
	rec, err := e.Get(ctx, grade, id)
	if err != nil {
		return nil, err
	}

	defer e.lockFile(id)()

	// 先删分块再删元数据，计数写入据此发现并发删除
	if err := e.store.Remove(ctx, ChunksPath(id)); err != nil {
		return nil, storeWrite("remove chunks", err)
	}

	if err := e.store.Remove(ctx, FilePath(grade, id)); err != nil {
		return nil, storeWrite("remove file record", err)
	}

	e.log.Info().Str("grade", grade).Str("id", id).Msg("file deleted")

	return rec, nil
}

// checkRef 校验年级与 id 能组成合法路径.
func (e *Engine) checkRef(grade, id string) error {
	if !e.HasGrade(grade) {
		return invalid("gradeLevel", "unknown grade "+grade)
	}

	if err := store.ValidateSegment(id); err != nil {
		return invalid("id", err.Error())
	}

	return nil
}
