package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Host         string `mapstructure:"host"             rule:"ip"`
	Port         int    `mapstructure:"port"             rule:"min=1,max=65535"`
	Debug        bool   `mapstructure:"debug"`
	ReloadConfig bool   `mapstructure:"reload_config"`
	// MaxMultipart multipart 表单在内存中保留的上限（MB），超出部分落临时文件
	MaxMultipart int64 `mapstructure:"max_multipart_mb" rule:"min=1"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"min=1s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        rule:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    rule:"min=1s"`
}

// Addr 返回监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.reload_config", true)
	v.SetDefault("server.max_multipart_mb", 256)
	v.SetDefault("server.read_header_timeout", "30s")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "15s")
}
