package logger

import (
	"os"
	"sync"

	"github.com/lk2023060901/partysheet/pkg/config"
)

var (
	defaultLogger     Logger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.RWMutex
)

// InitDefault 初始化默认 logger
func InitDefault(cfg *Config, opts ...Option) error {
	l, err := New(cfg, opts...)
	if err != nil {
		return err
	}

	SetDefault(l)
	return nil
}

// InitDefaultFromEnv 从环境变量初始化默认 logger
// 环境变量前缀: PARTYSHEET_LOG_
func InitDefaultFromEnv() error {
	envConfig := &Config{}

	if level := os.Getenv("PARTYSHEET_LOG_LEVEL"); level != "" {
		envConfig.Level = Level(level)
	}
	if format := os.Getenv("PARTYSHEET_LOG_FORMAT"); format != "" {
		envConfig.Format = Format(format)
	}
	if path := os.Getenv("PARTYSHEET_LOG_PATH"); path != "" {
		envConfig.EnableFile = true
		envConfig.OutputPath = path
	}
	if os.Getenv("PARTYSHEET_LOG_DEVELOPMENT") == "true" {
		envConfig.Development = true
	}

	merged, err := config.MergeConfig(DefaultConfig(), envConfig)
	if err != nil {
		return err
	}

	return InitDefault(merged)
}

// SetDefault 设置默认 logger
func SetDefault(l Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// Default 获取默认 logger，未初始化时懒加载控制台 logger
func Default() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLoggerMu.Lock()
		defer defaultLoggerMu.Unlock()
		if defaultLogger == nil {
			l, err := New(DefaultConfig())
			if err != nil {
				panic(err)
			}
			defaultLogger = l
		}
	})

	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// Named 基于默认 logger 创建具名 logger
func Named(name string) Logger {
	return Default().Named(name)
}

// WithFields 基于默认 logger 添加字段
func WithFields(keysAndValues ...interface{}) Logger {
	return Default().WithFields(keysAndValues...)
}

// Sync 同步默认 logger
func Sync() error {
	return Default().Sync()
}
