package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
	"github.com/yeisme/gradevault/pkg/internal/store"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
)

var grades = []string{"freebies", "grade7", "grade8"}

func randomBytes(n int) []byte {
	r := rand.New(rand.NewPCG(uint64(n), 7))
	b := make([]byte, n)

	for i := range b {
		b[i] = byte(r.UintN(256))
	}

	return b
}

func newMemStore(t *testing.T) store.Store {
	t.Helper()

	mem, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	return store.NewKVStore(mem, "")
}

func transferConfig(chunkSize int) configs.TransferConfig {
	cfg := configs.Default().Transfer
	cfg.ChunkSize = chunkSize

	return cfg
}

func newEngine(t *testing.T, st store.Store, chunkSize int, opts ...transfer.Option) *transfer.Engine {
	t.Helper()

	return transfer.New(st, transferConfig(chunkSize), grades, opts...)
}

func pdf(name string, data []byte) transfer.UploadInput {
	return transfer.UploadInput{
		Name:        name,
		GradeLevel:  "grade7",
		ContentType: "application/pdf",
		Data:        bytes.NewReader(data),
	}
}

// faultyStore 包装真实存储，在指定路径的写入或删除上注入错误.
type faultyStore struct {
	store.Store

	mu         sync.Mutex
	failSet    func(path string) bool
	failPush   bool
	failRemove bool
	sets       []string
}

func (f *faultyStore) Set(ctx context.Context, path string, value []byte) error {
	f.mu.Lock()
	f.sets = append(f.sets, path)
	fail := f.failSet != nil && f.failSet(path)
	f.mu.Unlock()

	if fail {
		return errors.New("injected set failure")
	}

	return f.Store.Set(ctx, path, value)
}

func (f *faultyStore) Push(ctx context.Context, parent string, value []byte) (string, error) {
	if f.failPush {
		return "", errors.New("injected push failure")
	}

	return f.Store.Push(ctx, parent, value)
}

func (f *faultyStore) Remove(ctx context.Context, path string) error {
	if f.failRemove {
		return errors.New("injected remove failure")
	}

	return f.Store.Remove(ctx, path)
}

func chunkCount(t *testing.T, st store.Store, id string) int {
	t.Helper()

	nodes, err := st.Children(context.Background(), transfer.ChunksPath(id))
	if err != nil {
		t.Fatalf("Children: %v", err)
	}

	return len(nodes)
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	const chunkSize = 8 // 6 字节恰好一块

	st := newMemStore(t)
	e := newEngine(t, st, chunkSize)
	ctx := context.Background()

	for _, n := range []int{0, 1, 2, 5, 6, 7, 12, 13, 100, 4099} {
		data := randomBytes(n)

		rec, err := e.Upload(ctx, pdf("sheet.pdf", data))
		if err != nil {
			t.Fatalf("Upload(%d bytes): %v", n, err)
		}

		if want := transfer.ChunkCount(int64(n), chunkSize); rec.TotalChunks != want {
			t.Errorf("%d bytes: TotalChunks = %d, want %d", n, rec.TotalChunks, want)
		}

		if got := chunkCount(t, st, rec.ID); got != rec.TotalChunks {
			t.Errorf("%d bytes: persisted %d chunks, record says %d", n, got, rec.TotalChunks)
		}

		got, meta, err := e.Download(ctx, "grade7", rec.ID)
		if err != nil {
			t.Fatalf("Download(%d bytes): %v", n, err)
		}

		if !bytes.Equal(got, data) {
			t.Fatalf("%d bytes: downloaded content differs", n)
		}

		if meta.DownloadCount != 1 {
			t.Errorf("%d bytes: DownloadCount = %d, want 1", n, meta.DownloadCount)
		}
	}
}

func TestUpload_MultiMegabyte(t *testing.T) {
	st := newMemStore(t)
	e := newEngine(t, st, configs.DefaultChunkSize)
	ctx := context.Background()

	tests := []struct {
		size int
		want int
	}{
		{5 << 19, 4}, // 2.5 MiB
		{2_000_000, 3},
	}

	for _, tt := range tests {
		data := randomBytes(tt.size)

		rec, err := e.Upload(ctx, pdf("big.pdf", data))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		if rec.TotalChunks != tt.want || chunkCount(t, st, rec.ID) != tt.want {
			t.Fatalf("%d bytes: TotalChunks = %d, want %d", tt.size, rec.TotalChunks, tt.want)
		}

		got, _, err := e.Download(ctx, "grade7", rec.ID)
		if err != nil {
			t.Fatalf("Download: %v", err)
		}

		if !bytes.Equal(got, data) {
			t.Fatal("downloaded content differs")
		}
	}
}

func TestUpload_FailureOnChunkTwoCleansUp(t *testing.T) {
	fs := &faultyStore{
		Store:   newMemStore(t),
		failSet: func(path string) bool { return strings.HasSuffix(path, "/2") },
	}
	e := newEngine(t, fs, 8)

	_, err := e.Upload(context.Background(), pdf("sheet.pdf", randomBytes(30)))

	var perr *transfer.PartialUploadError
	if !errors.As(err, &perr) {
		t.Fatalf("Upload err = %v, want PartialUploadError", err)
	}

	if !errors.Is(err, transfer.ErrPartialUpload) {
		t.Fatal("errors.Is(err, ErrPartialUpload) = false")
	}

	if perr.Written != 2 || perr.Total != 5 {
		t.Fatalf("Written/Total = %d/%d, want 2/5", perr.Written, perr.Total)
	}

	// 第 2 块之后不再写入
	for _, p := range fs.sets {
		if strings.HasSuffix(p, "/3") || strings.HasSuffix(p, "/4") {
			t.Fatalf("chunk written after failure: %s", p)
		}
	}

	if _, err := fs.Get(context.Background(), transfer.FilePath("grade7", perr.FileID)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("file record survived cleanup: %v", err)
	}

	if n := chunkCount(t, fs, perr.FileID); n != 0 {
		t.Fatalf("%d chunks survived cleanup", n)
	}
}

func TestUpload_MetadataFailureWritesNoChunks(t *testing.T) {
	fs := &faultyStore{Store: newMemStore(t), failPush: true}
	e := newEngine(t, fs, 8)

	_, err := e.Upload(context.Background(), pdf("sheet.pdf", randomBytes(30)))
	if !errors.Is(err, transfer.ErrStoreWrite) {
		t.Fatalf("Upload err = %v, want ErrStoreWrite", err)
	}

	if len(fs.sets) != 0 {
		t.Fatalf("chunk writes attempted: %v", fs.sets)
	}
}

func TestUpload_CleanupFailureReported(t *testing.T) {
	fs := &faultyStore{
		Store:      newMemStore(t),
		failSet:    func(path string) bool { return strings.HasSuffix(path, "/1") },
		failRemove: true,
	}

	var reported []transfer.CleanupFailure

	e := newEngine(t, fs, 8, transfer.WithCleanupFailureHook(func(_ context.Context, f transfer.CleanupFailure) {
		reported = append(reported, f)
	}))

	_, err := e.Upload(context.Background(), pdf("sheet.pdf", randomBytes(30)))

	var perr *transfer.PartialUploadError
	if !errors.As(err, &perr) || perr.Written != 1 {
		t.Fatalf("Upload err = %v, want PartialUploadError with Written=1", err)
	}

	if len(reported) != 1 || reported[0].FileID != perr.FileID || reported[0].Err == nil {
		t.Fatalf("cleanup failures reported = %+v", reported)
	}
}

func TestUpload_Validation(t *testing.T) {
	cfg := transferConfig(8)
	cfg.MaxFileSize = 10
	e := transfer.New(newMemStore(t), cfg, grades)

	tests := []struct {
		name  string
		in    transfer.UploadInput
		field string
	}{
		{"no file", transfer.UploadInput{Name: "a.pdf", GradeLevel: "grade7", ContentType: "application/pdf"}, "file"},
		{"empty name", pdf("  ", []byte("x")), "name"},
		{"unknown grade", transfer.UploadInput{Name: "a.pdf", GradeLevel: "grade99", ContentType: "application/pdf", Data: strings.NewReader("x")}, "gradeLevel"},
		{"bad type", transfer.UploadInput{Name: "a.exe", GradeLevel: "grade7", ContentType: "application/x-msdownload", Data: strings.NewReader("x")}, "contentType"},
		{"too large", pdf("a.pdf", randomBytes(11)), "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Upload(context.Background(), tt.in)

			var verr *transfer.ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, transfer.ErrValidation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}

			if verr.Field != tt.field {
				t.Fatalf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}

	if _, err := e.Upload(context.Background(), transfer.UploadInput{
		Name: "pic.png", GradeLevel: "grade7", ContentType: "image/png; charset=binary", Data: strings.NewReader("x"),
	}); err != nil {
		t.Fatalf("wildcard type rejected: %v", err)
	}
}

func TestDelete_LeavesNoOrphans(t *testing.T) {
	st := newMemStore(t)
	e := newEngine(t, st, 8)
	ctx := context.Background()

	rec, err := e.Upload(ctx, pdf("sheet.pdf", randomBytes(50)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if _, err := e.Delete(ctx, "grade7", rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if n := chunkCount(t, st, rec.ID); n != 0 {
		t.Fatalf("%d chunks left after delete", n)
	}

	if _, err := e.Get(ctx, "grade7", rec.ID); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}

	if _, err := e.Delete(ctx, "grade7", rec.ID); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

// remoteDeleteStore 在下一次写入 files/ 路径之前模拟另一个节点删除该文件.
type remoteDeleteStore struct {
	store.Store

	grade, id string
	armed     bool
}

func (r *remoteDeleteStore) Set(ctx context.Context, path string, value []byte) error {
	if r.armed && path == transfer.FilePath(r.grade, r.id) {
		r.armed = false

		if err := r.Store.Remove(ctx, transfer.ChunksPath(r.id)); err != nil {
			return err
		}

		if err := r.Store.Remove(ctx, path); err != nil {
			return err
		}
	}

	return r.Store.Set(ctx, path, value)
}

func TestDownload_DoesNotResurrectDeletedFile(t *testing.T) {
	st := &remoteDeleteStore{Store: newMemStore(t), grade: "grade7"}
	e := newEngine(t, st, 8)
	ctx := context.Background()

	data := randomBytes(30)

	rec, err := e.Upload(ctx, pdf("sheet.pdf", data))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	st.id = rec.ID
	st.armed = true

	got, _, err := e.Download(ctx, "grade7", rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Fatal("downloaded content differs")
	}

	if st.armed {
		t.Fatal("download count was never written")
	}

	if _, err := e.Get(ctx, "grade7", rec.ID); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("Get after concurrent delete = %v, want ErrNotFound", err)
	}

	list, err := e.List(ctx, "grade7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(list) != 0 {
		t.Fatalf("List = %d records, want none", len(list))
	}
}

func TestDownloadDelete_Concurrent(t *testing.T) {
	st := newMemStore(t)
	e := newEngine(t, st, 8)
	ctx := context.Background()

	for i := range 20 {
		rec, err := e.Upload(ctx, pdf("sheet.pdf", randomBytes(40+i)))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		var wg sync.WaitGroup

		wg.Add(2)

		go func() {
			defer wg.Done()
			_, _, _ = e.Download(ctx, "grade7", rec.ID)
		}()

		go func() {
			defer wg.Done()
			_, _ = e.Delete(ctx, "grade7", rec.ID)
		}()

		wg.Wait()

		if _, err := e.Get(ctx, "grade7", rec.ID); !errors.Is(err, transfer.ErrNotFound) {
			t.Fatalf("round %d: record survived delete: %v", i, err)
		}

		if n := chunkCount(t, st, rec.ID); n != 0 {
			t.Fatalf("round %d: %d chunks left", i, n)
		}
	}
}

func TestList_NewestFirst(t *testing.T) {
	st := newMemStore(t)
	now := time.UnixMilli(1_700_000_000_000)
	e := newEngine(t, st, 8, transfer.WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))
	ctx := context.Background()

	for _, name := range []string{"first.pdf", "second.pdf", "third.pdf"} {
		if _, err := e.Upload(ctx, pdf(name, []byte(name))); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}

	list, err := e.List(ctx, "grade7")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var names []string
	for _, r := range list {
		names = append(names, r.Name)
	}

	if strings.Join(names, ",") != "third.pdf,second.pdf,first.pdf" {
		t.Fatalf("List order = %v", names)
	}

	if empty, err := e.List(ctx, "grade8"); err != nil || len(empty) != 0 {
		t.Fatalf("List empty grade = %v, %v", empty, err)
	}

	if _, err := e.List(ctx, "grade99"); !errors.Is(err, transfer.ErrValidation) {
		t.Fatalf("List unknown grade = %v", err)
	}
}

func TestBreaker_ShortCircuitsWrites(t *testing.T) {
	fs := &faultyStore{
		Store:   newMemStore(t),
		failSet: func(path string) bool { return strings.HasPrefix(path, transfer.ChunksRoot) },
	}

	cfg := transferConfig(8)
	cfg.BreakerFailures = 1
	cfg.BreakerTimeout = 60
	e := transfer.New(fs, cfg, grades)

	if _, err := e.Upload(context.Background(), pdf("a.pdf", randomBytes(10))); !errors.Is(err, transfer.ErrPartialUpload) {
		t.Fatalf("first Upload = %v", err)
	}

	// breaker 已打开，元数据写入被短路
	_, err := e.Upload(context.Background(), pdf("b.pdf", randomBytes(10)))
	if !errors.Is(err, transfer.ErrStoreWrite) {
		t.Fatalf("second Upload = %v, want ErrStoreWrite", err)
	}
}

func chunks(text string, size int) []*model.ChunkRecord {
	var out []*model.ChunkRecord
	for i, seg := range transfer.Split(text, size) {
		out = append(out, model.NewChunkRecord("f1", i, seg))
	}

	return out
}
