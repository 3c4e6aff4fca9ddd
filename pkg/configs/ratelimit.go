package configs

import "github.com/spf13/viper"

// RateLimitConfig 令牌桶限流配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gt=0"`
	Burst   int     `mapstructure:"burst" rule:"min=1"`
	// Key 限流维度：global、ip、email（认证邮箱）或 header:Header-Name
	Key string `mapstructure:"key" rule:"required"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.key", "ip")
}
