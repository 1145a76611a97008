package kafka

import "time"

// Config Kafka 配置，只包含生产者
type Config struct {
	// Enabled 未启用时上层使用空实现
	Enabled bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers" mapstructure:"brokers"`

	Producer ProducerConfig `json:"producer" yaml:"producer" mapstructure:"producer"`

	SASL *SASLConfig `json:"sasl,omitempty" yaml:"sasl,omitempty" mapstructure:"sasl"`
	TLS  *TLSConfig  `json:"tls,omitempty" yaml:"tls,omitempty" mapstructure:"tls"`
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Async        bool          `json:"async" yaml:"async" mapstructure:"async"`
	BatchSize    int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout" mapstructure:"batch_timeout"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RequiredAcks 0 不等待, 1 leader, -1 全部副本
	RequiredAcks int `json:"required_acks" yaml:"required_acks" mapstructure:"required_acks"`

	// Compression none, gzip, snappy, lz4, zstd
	Compression string `json:"compression" yaml:"compression" mapstructure:"compression"`

	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
}

// SASLConfig SASL 认证配置
type SASLConfig struct {
	// Mechanism PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Mechanism string `json:"mechanism" yaml:"mechanism" mapstructure:"mechanism"`
	Username  string `json:"username" yaml:"username" mapstructure:"username"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
}

// TLSConfig TLS 配置
type TLSConfig struct {
	Enable             bool   `json:"enable" yaml:"enable" mapstructure:"enable"`
	CertFile           string `json:"cert_file" yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile            string `json:"key_file" yaml:"key_file" mapstructure:"key_file"`
	CAFile             string `json:"ca_file" yaml:"ca_file" mapstructure:"ca_file"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			BatchSize:    100,
			BatchTimeout: 50 * time.Millisecond,
			MaxRetries:   3,
			RequiredAcks: -1,
			Compression:  "snappy",
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Producer.RequiredAcks < -1 || c.Producer.RequiredAcks > 1 {
		return ErrInvalidConfig
	}
	return nil
}
