package configs

import (
	"github.com/spf13/viper"
)

// S3Config 兼容 S3 的对象存储配置（MinIO 客户端），作为 store 的 s3 后端.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"          rule:"required,hostname_port"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required,min=3,max=63"`
	Region          string `mapstructure:"region"`
}

// URL 返回带协议的端点地址.
func (c *S3Config) URL() string {
	if c.UseSSL {
		return "https://" + c.Endpoint
	}

	return "http://" + c.Endpoint
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", "localhost:9000")
	v.SetDefault("s3.access_key_id", "minioadmin")
	v.SetDefault("s3.secret_access_key", "minioadmin")
	v.SetDefault("s3.bucket_name", AppName)
	v.SetDefault("s3.region", "us-east-1")
}
