package sheetsync

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/config"
)

// Config 客户端同步配置
type Config struct {
	// BaseURL 持久化网关地址
	BaseURL string `mapstructure:"base_url" json:"base_url" validate:"required,url"`

	// RefetchInterval 轮询间隔
	RefetchInterval time.Duration `mapstructure:"refetch_interval" json:"refetch_interval" validate:"gt=0"`

	// SuppressionBuffer 抑制窗口在轮询间隔之外额外延长的时间
	SuppressionBuffer time.Duration `mapstructure:"suppression_buffer" json:"suppression_buffer" validate:"gte=0"`

	// FetchTimeout 单次拉取超时，超时视为本次轮询失败
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout" validate:"gt=0"`

	// SendTimeout 单个动作转发超时
	SendTimeout time.Duration `mapstructure:"send_timeout" json:"send_timeout" validate:"gt=0"`

	// SuppressOnAdd item_add/character_add 是否也开启抑制窗口
	SuppressOnAdd bool `mapstructure:"suppress_on_add" json:"suppress_on_add"`

	// Strict 开发模式，不变量被破坏时直接 panic
	Strict bool `mapstructure:"strict" json:"strict"`

	// RecentPath 最近访问列表的 bbolt 文件，为空时不记录
	RecentPath string `mapstructure:"recent_path" json:"recent_path"`

	// MaxRecent 最近访问列表长度上限
	MaxRecent int `mapstructure:"max_recent" json:"max_recent" validate:"gte=0"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://localhost:8080",
		RefetchInterval:   5 * time.Second,
		SuppressionBuffer: 2 * time.Second,
		FetchTimeout:      4 * time.Second,
		SendTimeout:       10 * time.Second,
		MaxRecent:         20,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(err, ErrInvalidConfig)
	}
	return nil
}

// SuppressionWindow 本地写入后跳过轮询覆盖的时长
func (c *Config) SuppressionWindow() time.Duration {
	return c.RefetchInterval + c.SuppressionBuffer
}

func mergeConfig(cfg *Config) (*Config, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
