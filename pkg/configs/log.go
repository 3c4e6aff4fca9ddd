package configs

import (
	"github.com/spf13/viper"
)

// LogConfig 日志相关配置，文件输出由 lumberjack 轮转.
type LogConfig struct {
	Level      string `mapstructure:"level"        rule:"oneof=trace debug info warn error fatal panic disabled"`
	Format     string `mapstructure:"format"       rule:"oneof=console json"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
	MaxSize    int    `mapstructure:"max_size_mb"  rule:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.enable_file", true)
	v.SetDefault("log.file_path", "logs/"+AppName+".log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}
