// Package metrics 维护进程内的 Prometheus 注册表，并在 gin 上暴露 /metrics 与可选的 pprof.
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		return err
//	}
//
//	metrics.UploadsTotal.WithLabelValues("grade7", metrics.ResultOK).Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册到 http.DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/gradevault/pkg/configs"
)

// HTTP 层指标，不带命名空间，与常见的 dashboard 保持一致.
var (
	RequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "endpoint", "status"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)

var (
	registry = prometheus.NewRegistry()
	initOnce sync.Once
	initErr  error
)

// InitMetrics 把全部指标注册到本包的注册表，只执行一次；未启用时什么都不做.
func InitMetrics(cfg configs.MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}

	initOnce.Do(func() {
		cs := []prometheus.Collector{RequestCounter, RequestDuration}
		cs = append(cs, transferCollectors()...)

		if cfg.RuntimeMetrics {
			cs = append(cs,
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		for _, c := range cs {
			if initErr = registry.Register(c); initErr != nil {
				return
			}
		}
	})

	return initErr
}

// StartMetricsServer 在 engine 上挂载指标端点，pprof 复用 http.DefaultServeMux.
func StartMetricsServer(cfg configs.MetricsConfig, engine *gin.Engine) error {
	if !cfg.Enabled {
		return nil
	}

	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.InstrumentMetricHandler(
		registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)))

	if cfg.Pprof {
		engine.Any("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 返回本包的注册表，供 watermill 与 gorm 指标复用.
func GetRegistry() *prometheus.Registry {
	return registry
}
