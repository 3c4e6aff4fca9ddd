package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig HTTP 入口熔断，按窗口内 5xx 比例打开.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FailureRate float64       `mapstructure:"failure_rate" rule:"gt=0,lte=1"`
	MinRequests uint32        `mapstructure:"min_requests" rule:"min=1"`
	Interval    time.Duration `mapstructure:"interval"     rule:"min=0"` // 计数清零周期，0 表示只在状态切换时清零
	OpenTimeout time.Duration `mapstructure:"open_timeout" rule:"min=0"` // 打开后多久进入半开
	HalfOpenMax uint32        `mapstructure:"half_open_max"`             // 半开状态放行的请求数
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.interval", "1m")
	v.SetDefault("circuit_breaker.open_timeout", "30s")
	v.SetDefault("circuit_breaker.half_open_max", 5)
}
