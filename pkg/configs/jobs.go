package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 定时任务配置.
type JobsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// OrphanSweepCron 孤儿分块清理的 cron 表达式
	OrphanSweepCron string `mapstructure:"orphan_sweep_cron" rule:"required"`
	// OrphanGraceMinutes 上传开始后多久才把不完整的记录视为孤儿
	OrphanGraceMinutes int `mapstructure:"orphan_grace_minutes" rule:"min=1"`
}

// OrphanGrace 返回宽限期.
func (c *JobsConfig) OrphanGrace() time.Duration {
	return time.Duration(c.OrphanGraceMinutes) * time.Minute
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.orphan_sweep_cron", "20 3 * * *")
	v.SetDefault("jobs.orphan_grace_minutes", 60)
}
