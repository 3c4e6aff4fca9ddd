package configs

import "github.com/spf13/viper"

// StoreBackend 路径存储后端类型.
type StoreBackend string

const (
	// StoreBackendKV 使用 kv 配置选择的键值存储（memory、redis、nats、groupcache）.
	StoreBackendKV StoreBackend = "kv"
	// StoreBackendSQL 使用 db 配置的关系型数据库.
	StoreBackendSQL StoreBackend = "sql"
	// StoreBackendS3 使用 s3 配置的对象存储.
	StoreBackendS3 StoreBackend = "s3"

	DefaultStoreBackend   = StoreBackendKV
	DefaultStoreKeyPrefix = "gv"
)

// StoreConfig 路径寻址存储配置，files/{grade}/{id} 与 fileChunks/{id}/{index} 都落在该存储上.
type StoreConfig struct {
	Backend StoreBackend `mapstructure:"backend"    rule:"oneof=kv sql s3"`
	// KeyPrefix 在共享的 KV/对象存储中隔离本应用的键，空字符串表示不加前缀
	KeyPrefix string `mapstructure:"key_prefix" rule:"omitempty,alphanum"`
	// AutoMigrate sql 后端启动时自动建表
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

func (c *StoreConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", DefaultStoreBackend)
	v.SetDefault("store.key_prefix", DefaultStoreKeyPrefix)
	v.SetDefault("store.auto_migrate", true)
}
