package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/metrics"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics"}

	for range 2 {
		if err := metrics.InitMetrics(cfg); err != nil {
			t.Fatalf("init: %v", err)
		}
	}

	metrics.UploadsTotal.WithLabelValues("grade7", metrics.ResultOK).Inc()

	e := gin.New()
	if err := metrics.StartMetricsServer(cfg, e); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	want := configs.AppName + `_uploads_total{grade="grade7",result="ok"}`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("missing %s in\n%s", want, rec.Body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	e := gin.New()
	if err := metrics.StartMetricsServer(configs.MetricsConfig{}, e); err != nil {
		t.Fatal(err)
	}

	if n := len(e.Routes()); n != 0 {
		t.Errorf("expected no routes, got %d", n)
	}
}
