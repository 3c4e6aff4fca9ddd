package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticAdmins map[string]bool

func (s staticAdmins) IsAdmin(_ context.Context, email string) (bool, error) {
	return s[email], nil
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestETagMiddleware_NotModified(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ETagMiddleware())
	r.GET("/files/grade7", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"files": []string{"a", "b"}})
	})

	first := serve(r, httptest.NewRequest(http.MethodGet, "/files/grade7", nil))
	etag := first.Header().Get("ETag")

	if first.Code != http.StatusOK || etag == "" || first.Body.Len() == 0 {
		t.Fatalf("first response: code=%d etag=%q body=%q", first.Code, etag, first.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/files/grade7", nil)
	req.Header.Set("If-None-Match", etag)

	second := serve(r, req)
	if second.Code != http.StatusNotModified || second.Body.Len() != 0 {
		t.Fatalf("second response: code=%d body=%q", second.Code, second.Body.String())
	}
}

func TestETagMiddleware_PassesErrorsThrough(t *testing.T) {
	r := gin.New()
	r.Use(middleware.ETagMiddleware())
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound || w.Header().Get("ETag") != "" {
		t.Fatalf("code=%d etag=%q", w.Code, w.Header().Get("ETag"))
	}
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{DevAllowQuery: true}))
	r.DELETE("/files/:grade/:id", middleware.RequireAdmin(staticAdmins{"head@school.edu": true}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"not admin", "pupil@school.edu", "", http.StatusForbidden},
		{"admin header", "head@school.edu", "", http.StatusNoContent},
		{"admin query", "", "?user=head@school.edu", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/files/grade7/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("X-Auth-Request-Email", tt.header)
			}

			if w := serve(r, req); w.Code != tt.want {
				t.Errorf("code = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_SkipPaths(t *testing.T) {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(configs.AuthConfig{Enabled: true, SkipPaths: []string{"/api/v1/health"}}))
	r.GET("/api/v1/health/store", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/files/grade7", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/health/store", nil)); w.Code != http.StatusOK {
		t.Errorf("skipped path code = %d", w.Code)
	}

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/files/grade7", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("protected path code = %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2, Key: "global"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, middleware.GetRequestID(c)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := w.Header().Get(middleware.HeaderRequestID); id == "" || id != w.Body.String() {
		t.Errorf("generated id header=%q body=%q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc")

	if w := serve(r, req); w.Body.String() != "abc" {
		t.Errorf("propagated id = %q", w.Body.String())
	}
}
