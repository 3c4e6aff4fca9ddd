package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool             `mapstructure:"enabled"`  // 总开关
	Producer string           `mapstructure:"producer"` // 写入事件头的生产者标识
	File     FileEventsConfig `mapstructure:"file"`
}

// FileEventsConfig 针对文件分块传输的事件开关。
type FileEventsConfig struct {
	Uploaded      bool `mapstructure:"uploaded"`
	UploadFailed  bool `mapstructure:"upload_failed"`
	Downloaded    bool `mapstructure:"downloaded"`
	Deleted       bool `mapstructure:"deleted"`
	CleanupFailed bool `mapstructure:"cleanup_failed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.producer", AppName)

	v.SetDefault("events.file.uploaded", true)
	v.SetDefault("events.file.deleted", true)
	v.SetDefault("events.file.upload_failed", true)
	v.SetDefault("events.file.cleanup_failed", true)
	// 下载事件量可能很大，默认关闭
	v.SetDefault("events.file.downloaded", false)
}
