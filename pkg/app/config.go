package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lk2023060901/partysheet/pkg/config"
)

// EnvPrefix 环境变量前缀，PARTYSHEET_LOG_LEVEL 覆盖 log.level
const EnvPrefix = "PARTYSHEET"

// LoadResult 配置加载结果
type LoadResult struct {
	Manager    config.Manager
	ConfigPath string
	LogPath    string
}

// LoadConfig 解析命令行并加载配置到 target
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值
func LoadConfig(target any, args []string, opts ...config.Option) (*LoadResult, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable directory: %w", err)
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "app.log")

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", defaultConfig, "path to config file")
	logPath := fs.String("log.path", defaultLog, "output path for logs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 配置文件路径：flag > PARTYSHEET_CONFIG > 可执行文件目录
	finalConfigPath := *configPath
	if !fs.Changed("config") {
		if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
		}
	}
	if _, err := os.Stat(finalConfigPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at %s", finalConfigPath)
	}

	v.SetDefault("log.output_path", defaultLog)
	if fs.Changed("log.path") {
		v.Set("log.output_path", *logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append([]config.Option{config.WithViper(v)}, opts...)...)
	if err := mgr.LoadFile(finalConfigPath); err != nil {
		return nil, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	finalLog := v.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		if err := os.MkdirAll(filepath.Dir(finalLog), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
	}

	return &LoadResult{
		Manager:    mgr,
		ConfigPath: finalConfigPath,
		LogPath:    finalLog,
	}, nil
}

// GetExecDir 可执行文件所在目录（解析符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}
