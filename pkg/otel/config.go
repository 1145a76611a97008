package otel

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	// ExporterTypeStdout 打印到标准输出，本地调试用
	ExporterTypeStdout ExporterType = "stdout"
	ExporterTypeNoop   ExporterType = "noop"
)

// SamplerType 采样类型
type SamplerType string

const (
	SamplerTypeAlways SamplerType = "always"
	SamplerTypeNever  SamplerType = "never"
	SamplerTypeRatio  SamplerType = "ratio"
	// SamplerTypeParent 有父 span 时跟随父决策，否则按 Ratio 采样
	SamplerTypeParent SamplerType = "parent"
)

// Config TracerProvider 配置，Enabled 为 false 时使用全局 noop 实现
type Config struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Endpoint OTLP HTTP 地址，如 localhost:4318
	Endpoint     string       `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	ExporterType ExporterType `json:"exporter_type" yaml:"exporter_type" mapstructure:"exporter_type"`
	Insecure     bool         `json:"insecure" yaml:"insecure" mapstructure:"insecure"`

	Sampler     SamplerConfig     `json:"sampler" yaml:"sampler" mapstructure:"sampler"`
	BatchExport BatchExportConfig `json:"batch_export" yaml:"batch_export" mapstructure:"batch_export"`

	// Attributes 附加到 resource 上的属性，如 deployment.environment
	Attributes      map[string]string `json:"attributes" yaml:"attributes" mapstructure:"attributes"`
	ShutdownTimeout time.Duration     `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// SamplerConfig 采样配置
type SamplerConfig struct {
	Type  SamplerType `json:"type" yaml:"type" mapstructure:"type"`
	Ratio float64     `json:"ratio" yaml:"ratio" mapstructure:"ratio"`
}

// BatchExportConfig 批量导出配置
type BatchExportConfig struct {
	BatchSize     int           `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	ExportTimeout time.Duration `json:"export_timeout" yaml:"export_timeout" mapstructure:"export_timeout"`
	MaxQueueSize  int           `json:"max_queue_size" yaml:"max_queue_size" mapstructure:"max_queue_size"`
	BatchTimeout  time.Duration `json:"batch_timeout" yaml:"batch_timeout" mapstructure:"batch_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ServiceName:  "partysheet",
		Endpoint:     "localhost:4318",
		ExporterType: ExporterTypeOTLPHTTP,
		Insecure:     true,
		Sampler: SamplerConfig{
			Type:  SamplerTypeParent,
			Ratio: 1.0,
		},
		BatchExport: BatchExportConfig{
			BatchSize:     512,
			ExportTimeout: 30 * time.Second,
			MaxQueueSize:  2048,
			BatchTimeout:  5 * time.Second,
		},
		Attributes:      make(map[string]string),
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate 未启用时不校验
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrInvalidServiceName
	}

	switch c.ExporterType {
	case ExporterTypeOTLPHTTP, ExporterTypeStdout, ExporterTypeNoop, "":
	default:
		return errors.Wrapf(ErrUnsupportedExporter, "%q", c.ExporterType)
	}

	if c.Sampler.Type == SamplerTypeRatio && (c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1) {
		return errors.Wrapf(ErrInvalidSamplerRatio, "got %v", c.Sampler.Ratio)
	}
	return nil
}
