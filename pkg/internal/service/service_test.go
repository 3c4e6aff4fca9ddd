package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/gradevault/pkg/cache"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/model"
	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
	"github.com/yeisme/gradevault/pkg/internal/store"
	"github.com/yeisme/gradevault/pkg/internal/transfer"
	"github.com/yeisme/gradevault/pkg/queue"
)

type fixture struct {
	svc    *service.FileService
	store  store.Store
	cache  *cache.Cache
	pubsub *gochannel.GoChannel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	// 存储与缓存共用一个 KV，靠前缀隔离
	st := store.NewKVStore(mem, "gv")
	c := cache.NewCache(mem)

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	cfg := configs.Default()
	cfg.Transfer.ChunkSize = 8
	cfg.Events.File.Downloaded = true

	events := queue.NewPublisher(ch, cfg.Events)
	engine := transfer.New(st, cfg.Transfer, cfg.Catalog.GradeKeys(),
		transfer.WithCleanupFailureHook(service.CleanupFailedHook(events)))

	return &fixture{
		svc:    service.NewFileService(engine, events, c, cfg.Catalog),
		store:  st,
		cache:  c,
		pubsub: ch,
	}
}

func (f *fixture) subscribe(t *testing.T, topic string) <-chan *message.Message {
	t.Helper()

	msgs, err := f.pubsub.Subscribe(context.Background(), topic)
	if err != nil {
		t.Fatalf("Subscribe(%s): %v", topic, err)
	}

	return msgs
}

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()

	select {
	case m := <-msgs:
		m.Ack()
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func input(name, grade string, data []byte) transfer.UploadInput {
	return transfer.UploadInput{
		Name:        name,
		GradeLevel:  grade,
		ContentType: "application/pdf",
		Data:        bytes.NewReader(data),
	}
}

func TestFileService_UploadPublishesAndInvalidatesList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uploaded := f.subscribe(t, queue.TopicFileUploaded)

	before, err := f.svc.List(ctx, "grade8")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(before) != 0 {
		t.Fatalf("List = %d records, want 0", len(before))
	}

	if ok, _ := f.cache.Exists(ctx, service.ListCacheKey("grade8")); !ok {
		t.Fatal("List should populate the cache")
	}

	rec, err := f.svc.Upload(ctx, input("algebra.pdf", "grade8", []byte("quadratic equations")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	env, err := queue.ParseFileUploaded(receive(t, uploaded))
	if err != nil {
		t.Fatalf("ParseFileUploaded: %v", err)
	}

	if env.Payload.File.ID != rec.ID || env.Payload.File.TotalChunks != rec.TotalChunks {
		t.Errorf("event payload = %+v, want id %s chunks %d", env.Payload.File, rec.ID, rec.TotalChunks)
	}

	after, err := f.svc.List(ctx, "grade8")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(after) != 1 || after[0].ID != rec.ID {
		t.Fatalf("List after upload = %v, want [%s]", after, rec.ID)
	}
}

func TestFileService_UploadFailedEvent(t *testing.T) {
	f := newFixture(t)
	failed := f.subscribe(t, queue.TopicFileUploadFailed)

	in := input("notes.exe", "grade9", []byte("MZ"))
	in.ContentType = "application/x-msdownload"

	if _, err := f.svc.Upload(context.Background(), in); !errors.Is(err, transfer.ErrValidation) {
		t.Fatalf("Upload err = %v, want ErrValidation", err)
	}

	env, err := queue.ParseWatermillMessage[queue.FileUploadFailedPayload](receive(t, failed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Payload.Stage != queue.StageValidation || env.Payload.File.Name != "notes.exe" {
		t.Errorf("payload = %+v", env.Payload)
	}
}

func TestFileService_DownloadAndDataURI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	downloaded := f.subscribe(t, queue.TopicFileDownloaded)

	data := []byte("photosynthesis worksheet")

	rec, err := f.svc.Upload(ctx, input("bio.pdf", "grade7", data))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	uri, meta, err := f.svc.DataURI(ctx, "grade7", rec.ID)
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}

	if want := "data:application/pdf;base64," + transfer.Encode(data); uri != want {
		t.Errorf("DataURI = %q, want %q", uri, want)
	}

	env, err := queue.ParseWatermillMessage[queue.FileDownloadedPayload](receive(t, downloaded))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if env.Payload.DownloadCount != meta.DownloadCount || meta.DownloadCount != 1 {
		t.Errorf("DownloadCount event=%d record=%d, want 1", env.Payload.DownloadCount, meta.DownloadCount)
	}

	got, _, err := f.svc.Download(ctx, "grade7", rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if !bytes.Equal(got, data) {
		t.Fatal("downloaded content differs")
	}
}

func TestFileService_DeleteRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deleted := f.subscribe(t, queue.TopicFileDeleted)

	rec, err := f.svc.Upload(ctx, input("history.pdf", "grade10", bytes.Repeat([]byte("x"), 40)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := f.svc.Delete(ctx, "grade10", rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	receive(t, deleted)

	if _, err := f.svc.Get(ctx, "grade10", rec.ID); !errors.Is(err, transfer.ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}

	nodes, err := f.store.Children(ctx, transfer.ChunksPath(rec.ID))
	if err != nil {
		t.Fatalf("Children: %v", err)
	}

	if len(nodes) != 0 {
		t.Errorf("%d chunks left behind", len(nodes))
	}
}

func TestUploadMany_ReportsProgressPerFile(t *testing.T) {
	f := newFixture(t)

	open := func(s string) func() (io.ReadCloser, error) {
		return func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(s)), nil }
	}

	files := []service.UploadFile{
		{Name: "a.pdf", ContentType: "application/pdf", Open: open("first file body")},
		{Name: "b.txt", ContentType: "text/plain", Open: open("rejected")},
		{Name: "c.png", ContentType: "image/png", Open: open("third")},
	}

	var progress []service.Progress

	results := f.svc.UploadMany(context.Background(), "grade11-12", files, func(p service.Progress) {
		progress = append(progress, p)
	})

	if len(results) != 3 || len(progress) != 3 {
		t.Fatalf("results=%d progress=%d, want 3 and 3", len(results), len(progress))
	}

	for i, p := range progress {
		if p.Done != i+1 || p.Total != 3 {
			t.Errorf("progress[%d] = %d/%d", i, p.Done, p.Total)
		}
	}

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}

	if !errors.Is(results[1].Err, transfer.ErrValidation) {
		t.Errorf("b.txt err = %v, want ErrValidation", results[1].Err)
	}

	list, err := f.svc.List(context.Background(), "grade11-12")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(list) != 2 {
		t.Errorf("List = %d records, want 2", len(list))
	}
}

func TestCacheListener_InvalidatesOnDeletedEvent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := service.ListCacheKey("grade9")
	if err := cache.Set(ctx, f.cache, key, []*model.FileRecord{{ID: "stale"}}, time.Minute); err != nil {
		t.Fatalf("cache.Set: %v", err)
	}

	l, err := service.NewCacheListener(f.pubsub, nil, f.cache)
	if err != nil {
		t.Fatalf("NewCacheListener: %v", err)
	}

	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Stop()

	// 其他节点发布的删除事件
	other := queue.NewPublisher(f.pubsub, configs.Default().Events)
	if err := other.FileDeleted(ctx, queue.FileDeletedPayload{File: queue.FileRef{ID: "stale", GradeLevel: "grade9"}}); err != nil {
		t.Fatalf("FileDeleted: %v", err)
	}

	for {
		ok, err := f.cache.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}

		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			t.Fatal("list cache was not invalidated")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
