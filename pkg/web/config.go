package web

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// ErrInvalidConfig 无效配置
var ErrInvalidConfig = errors.New("web: invalid config")

// Config Web 服务配置
type Config struct {
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	Mode            string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ServiceName     string        `mapstructure:"service_name"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	CertFile        string        `mapstructure:"cert_file"`
	KeyFile         string        `mapstructure:"key_file"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ServiceName:     "web",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.EnableTLS && (c.CertFile == "" || c.KeyFile == "") {
		return errors.Wrap(ErrInvalidConfig, "tls requires cert_file and key_file")
	}
	return nil
}
