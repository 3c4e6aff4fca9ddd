package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/gradevault/pkg/configs"
)

// result 标签取值.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// 分块传输与后台清理指标，命名空间为应用名.
var (
	UploadsTotal    = counterVec("uploads_total", "Chunked uploads by grade and result", "grade", "result")
	DownloadsTotal  = counterVec("downloads_total", "Reassembled downloads by grade and result", "grade", "result")
	OrphansRemoved  = counterVec("orphans_removed_total", "Records removed by the orphan sweeper", "kind")
	ChunksWritten   = counter("chunks_written_total", "Chunk records written")
	CleanupFailures = counter("cleanup_failures_total", "Best-effort cleanups that failed after an upload error")

	// UploadBytes 从 1KiB 到约 256MiB 的指数桶.
	UploadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: configs.AppName,
		Name:      "upload_bytes",
		Help:      "Original size of uploaded files",
		Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 10),
	})
)

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: configs.AppName, Name: name, Help: help}, labels)
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: configs.AppName, Name: name, Help: help})
}

func transferCollectors() []prometheus.Collector {
	return []prometheus.Collector{UploadsTotal, DownloadsTotal, OrphansRemoved, ChunksWritten, CleanupFailures, UploadBytes}
}
