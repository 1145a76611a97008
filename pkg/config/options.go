package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认配置值
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 设置配置文件类型（yaml、json、toml 等）
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithEnvPrefix 设置环境变量前缀，"." 映射为 "_"
// 如 PARTYSHEET_SYNC_REFETCH_INTERVAL 覆盖 sync.refetch_interval
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		if prefix != "" {
			m.v.SetEnvPrefix(prefix)
			m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			m.v.AutomaticEnv()
		}
	}
}

// WithViper 使用自定义的 Viper 实例
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}
