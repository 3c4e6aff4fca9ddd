package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
// Example:
//
//	config := configs.GetConfig()
//	if config.Metrics.Enabled {
//		_ = metrics.InitMetrics(config.Metrics)
//	}
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`         // 是否启用Metrics
	ServiceName    string            `mapstructure:"service_name"`    // 服务名称
	ServiceVersion string            `mapstructure:"service_version"` // 服务版本
	Namespace      string            `mapstructure:"namespace"`       // 业务指标命名空间
	Path           string            `mapstructure:"path"`            // 暴露指标的路径
	Pprof          bool              `mapstructure:"pprof"`           // 是否挂载 /debug/pprof
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // 是否收集运行时指标
	Labels         map[string]string `mapstructure:"labels"`          // 默认标签
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.service_name", AppName)
	v.SetDefault("metrics.service_version", AppVersion)
	v.SetDefault("metrics.namespace", AppName)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.labels", map[string]string{
		"service": AppName,
		"version": AppVersion,
	})
}
