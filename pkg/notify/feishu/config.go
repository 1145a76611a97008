package feishu

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/pkg/notify"
)

// Config 飞书机器人配置
type Config struct {
	// WebhookURL 机器人 webhook 地址，为空表示不启用
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url"`

	// Secret 签名密钥，可选
	Secret string `mapstructure:"secret" json:"secret"`

	// Timeout 单次请求超时
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

// Enabled 是否配置了 webhook
func (c *Config) Enabled() bool {
	return c != nil && c.WebhookURL != ""
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return errors.Wrap(notify.ErrInvalidConfig, "webhook_url is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "http://") && !strings.HasPrefix(c.WebhookURL, "https://") {
		return errors.Wrap(notify.ErrInvalidConfig, "webhook_url must start with http:// or https://")
	}
	if c.Timeout <= 0 {
		return errors.Wrap(notify.ErrInvalidConfig, "timeout must be positive")
	}
	return nil
}
