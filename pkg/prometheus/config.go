package prometheus

import "time"

// Config Prometheus 配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" yaml:"subsystem" mapstructure:"subsystem"`

	// HTTPServer 独立暴露指标的 HTTP 服务，默认关闭，由 web 服务挂载 /metrics
	HTTPServer HTTPServerConfig `json:"http_server" yaml:"http_server" mapstructure:"http_server"`

	EnableGoCollector      bool `json:"enable_go_collector" yaml:"enable_go_collector" mapstructure:"enable_go_collector"`
	EnableProcessCollector bool `json:"enable_process_collector" yaml:"enable_process_collector" mapstructure:"enable_process_collector"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	Path    string        `json:"path" yaml:"path" mapstructure:"path"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "partysheet",
		HTTPServer: HTTPServerConfig{
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
		EnableGoCollector:      true,
		EnableProcessCollector: true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return ErrInvalidConfig
	}

	if c.HTTPServer.Enabled {
		if c.HTTPServer.Addr == "" {
			return ErrInvalidConfig
		}
		if c.HTTPServer.Path == "" {
			c.HTTPServer.Path = "/metrics"
		}
		if c.HTTPServer.Timeout == 0 {
			c.HTTPServer.Timeout = 10 * time.Second
		}
	}

	return nil
}
