// Package configs 管理应用程序配置，包括存储后端、分块传输、年级目录、数据库、对象存储和队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Transfer.ChunkSize)
//
// Example accessing Store config:
//
//	config := configs.GetConfig()
//	fmt.Println("Store backend:", config.Store.Backend)
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/yeisme/gradevault/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 GRADEVAULT_SERVER_PORT.
const EnvPrefix = "GRADEVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Store          StoreConfig          `mapstructure:"store"`           // StoreConfig 路径存储后端
		Transfer       TransferConfig       `mapstructure:"transfer"`        // TransferConfig 分块传输
		Catalog        CatalogConfig        `mapstructure:"catalog"`         // CatalogConfig 年级目录
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 认证与管理员
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控指标
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
	}
)

var (
	mu      sync.RWMutex
	current AppConfig
	appV    *viper.Viper
)

// configExts 按顺序查找 config.<ext>.
var configExts = []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

// InitConfig 依次合并默认值、配置文件与 GRADEVAULT_* 环境变量，校验通过后替换全局配置.
// path 可以是文件或目录，目录下依次查找 config.<ext> 与 configs/config.<ext>；
// 为空或找不到时只用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := findConfigFile(path)
	if file != "" {
		v.SetConfigFile(file)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return err
	}

	mu.Lock()
	current, appV = cfg, v
	mu.Unlock()

	if file != "" && cfg.Server.ReloadConfig {
		watch(v)
	}

	return nil
}

func decode(v *viper.Viper) (AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := rule.ValidateStruct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func findConfigFile(path string) string {
	if path == "" {
		return ""
	}

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}

	for _, dir := range []string{path, filepath.Join(path, "configs")} {
		for _, ext := range configExts {
			candidate := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return ""
}

func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	for _, d := range []interface{ setDefaults(*viper.Viper) }{
		&c.Server, &c.Log, &c.Store, &c.Transfer, &c.Catalog,
		&c.KV, &c.DB, &c.S3, &c.MQ, &c.Events, &c.Auth,
		&c.RateLimit, &c.CircuitBreaker, &c.Metrics, &c.Tracing, &c.Jobs,
	} {
		d.setDefaults(v)
	}
}

// watch 监听配置文件，新配置校验失败时保留旧配置.
// 存储后端等在启动时已经建立的连接不会随之重建.
func watch(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("config reload rejected")
			return
		}

		mu.Lock()
		current = cfg
		mu.Unlock()

		log.Info().Str("file", e.Name).Msg("config reloaded")
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置的副本.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	cfg := current

	return &cfg
}

// SetConfig 直接替换全局配置，用于测试与嵌入.
func SetConfig(cfg AppConfig) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

// Default 返回只包含默认值的配置.
func Default() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}

// GetViper 返回最近一次 InitConfig 使用的 viper 实例.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appV
}
