package app_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/app"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/storage"
	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
	"github.com/yeisme/gradevault/pkg/internal/storage/mq"
	"github.com/yeisme/gradevault/pkg/internal/store"
	"github.com/yeisme/gradevault/pkg/internal/types"
	"github.com/yeisme/gradevault/pkg/scheduler"
)

const adminEmail = "admin@school.test"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	cfg := configs.Default()
	cfg.Transfer.ChunkSize = 16
	cfg.Auth.AdminEmails = []string{adminEmail}

	kvc, err := kv.New(ctx, &cfg.KV)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	mqc, err := mq.New(ctx, &cfg.MQ)
	if err != nil {
		t.Fatalf("mq: %v", err)
	}

	mgr := storage.NewWithStore(store.NewKVStore(kvc, cfg.Store.KeyPrefix), mqc, kvc)
	core := app.Assemble(&cfg, mgr)
	t.Cleanup(func() { _ = core.Close() })

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	t.Cleanup(func() { _ = sched.Stop() })

	return app.NewEngine(core, sched)
}

func multipartBody(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}

	_, _ = part.Write(data)
	_ = w.Close()

	return &buf, w.FormDataContentType()
}

func do(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestHTTP_UploadDownloadDelete(t *testing.T) {
	e := newEngine(t)
	data := bytes.Repeat([]byte("worksheet-"), 20)

	body, ct := multipartBody(t, "unit1.pdf", "application/pdf", data)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/grade7", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Auth-Request-Email", adminEmail)

	rec := do(e, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body)
	}

	var up types.UploadFilesResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &up); err != nil {
		t.Fatal(err)
	}

	if up.Succeeded != 1 || len(up.Results) != 1 || up.Results[0].ID == "" {
		t.Fatalf("upload response %+v", up)
	}

	id := up.Results[0].ID

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/files/grade7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}

	var list types.ListFilesResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}

	if list.Count != 1 || list.Files[0].ID != id || list.Files[0].TotalChunks != up.Results[0].TotalChunks {
		t.Fatalf("list %+v", list)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/files/grade7/"+id+"/download", nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatalf("download status %d, %d bytes", rec.Code, rec.Body.Len())
	}

	if got := rec.Header().Get("X-Download-Count"); got != "1" {
		t.Errorf("download count header = %q", got)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/files/grade7/"+id, nil)
	del.Header.Set("X-Auth-Request-Email", adminEmail)

	if rec = do(e, del); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d: %s", rec.Code, rec.Body)
	}

	if rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/files/grade7/"+id, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("meta after delete status %d", rec.Code)
	}
}

func TestHTTP_Errors(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"upload without email", func() *http.Request {
			body, ct := multipartBody(t, "a.pdf", "application/pdf", []byte("x"))
			r := httptest.NewRequest(http.MethodPost, "/api/v1/files/grade7", body)
			r.Header.Set("Content-Type", ct)

			return r
		}, http.StatusUnauthorized},
		{"upload by non admin", func() *http.Request {
			body, ct := multipartBody(t, "a.pdf", "application/pdf", []byte("x"))
			r := httptest.NewRequest(http.MethodPost, "/api/v1/files/grade7", body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-Auth-Request-Email", "student@school.test")

			return r
		}, http.StatusForbidden},
		{"rejected content type", func() *http.Request {
			body, ct := multipartBody(t, "notes.txt", "text/plain", []byte("x"))
			r := httptest.NewRequest(http.MethodPost, "/api/v1/files/grade7", body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-Auth-Request-Email", adminEmail)

			return r
		}, http.StatusBadRequest},
		{"unknown grade", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/files/grade13", nil)
		}, http.StatusBadRequest},
		{"missing file", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/files/grade7/01ARZ3NDEKTSV4RRFFQ69G5FAV/download", nil)
		}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(e, tt.req()); rec.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestHTTP_GradesAndAdminCheck(t *testing.T) {
	e := newEngine(t)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/grades", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("grades status %d", rec.Code)
	}

	var grades types.GradesResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &grades); err != nil {
		t.Fatal(err)
	}

	if len(grades.Grades) != 6 || grades.ChunkSize != 16 {
		t.Fatalf("grades %+v", grades)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/admins/check?email="+adminEmail, nil))

	var check types.AdminCheckResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &check); err != nil || !check.Admin {
		t.Fatalf("admin check %d %s", rec.Code, rec.Body)
	}
}

func TestHTTP_Health(t *testing.T) {
	e := newEngine(t)

	want := map[string]string{"store": "ok", "mq": "ok", "db": "disabled", "s3": "disabled"}

	for component, status := range want {
		rec := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/health/"+component, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", component, rec.Code, rec.Body)
		}

		var body map[string]string
		if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}

		if body["status"] != status {
			t.Errorf("%s: status %q, want %q", component, body["status"], status)
		}
	}
}
