package configs

import "github.com/spf13/viper"

// Grade 年级分组，Key 用作存储路径 files/{key}.
type Grade struct {
	Key   string `mapstructure:"key"   json:"key"   rule:"segment"`
	Label string `mapstructure:"label" json:"label" rule:"required"`
}

// CatalogConfig 年级目录配置.
type CatalogConfig struct {
	Grades []Grade `mapstructure:"grades" rule:"min=1,dive"`
	// ListCacheTTL 按年级列表缓存时间（秒），0 表示不缓存
	ListCacheTTL int `mapstructure:"list_cache_ttl" rule:"min=0"`
}

// HasGrade 判断年级是否在目录中.
func (c *CatalogConfig) HasGrade(key string) bool {
	for _, g := range c.Grades {
		if g.Key == key {
			return true
		}
	}

	return false
}

// GradeKeys 返回目录中所有年级的 key.
func (c *CatalogConfig) GradeKeys() []string {
	keys := make([]string, 0, len(c.Grades))
	for _, g := range c.Grades {
		keys = append(keys, g.Key)
	}

	return keys
}

func (c *CatalogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.grades", []map[string]string{
		{"key": "freebies", "label": "Freebies"},
		{"key": "grade7", "label": "Grade 7"},
		{"key": "grade8", "label": "Grade 8"},
		{"key": "grade9", "label": "Grade 9"},
		{"key": "grade10", "label": "Grade 10"},
		{"key": "grade11-12", "label": "Grade 11-12"},
	})
	v.SetDefault("catalog.list_cache_ttl", 60)
}
