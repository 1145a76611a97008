package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/partysheet/pkg/logger"
)

type fakeServer struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startErr error
}

func (s *fakeServer) Start() error {
	s.started.Store(true)
	return s.startErr
}

func (s *fakeServer) Stop() error {
	s.stopped.Store(true)
	return nil
}

type section struct {
	Log struct {
		Level      string `mapstructure:"level"`
		OutputPath string `mapstructure:"output_path"`
	} `mapstructure:"log"`
	Sheet struct {
		DedupTTL time.Duration `mapstructure:"dedup_ttl"`
	} `mapstructure:"sheet"`
}

// TestBaseAppLifecycle 测试启动、关闭顺序
func TestBaseAppLifecycle(t *testing.T) {
	a := NewBaseApp(WithLogger(logger.NewNoop()), WithName("test"), WithStopTimeout(time.Second))

	srv := &fakeServer{}
	var order []string
	a.AppendServer(srv)
	a.AppendCloser(
		CloserFunc(func() error { order = append(order, "first"); return nil }),
		CloserFunc(func() error { order = append(order, "second"); return errors.New("ignored") }),
	)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, a.Run(), ErrAppAlreadyRunning)

	require.NoError(t, a.Shutdown())
	require.NoError(t, <-done)

	assert.True(t, srv.stopped.Load())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Error(t, a.Context().Err())
}

// TestBaseAppStartFailure 测试服务启动失败时返回错误
func TestBaseAppStartFailure(t *testing.T) {
	a := NewBaseApp(WithLogger(logger.NewNoop()))
	boom := errors.New("boom")
	a.AppendServer(&fakeServer{startErr: boom})

	assert.ErrorIs(t, a.Run(), boom)
}

// TestLoadConfig 测试 flag、环境变量与文件的优先级
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\nsheet:\n  dedup_ttl: 1m\n"), 0o644))

	t.Setenv("PARTYSHEET_LOG_LEVEL", "debug")
	logFile := filepath.Join(dir, "logs", "sheet.log")

	var cfg section
	res, err := LoadConfig(&cfg, []string{"-c", path, "--log.path", logFile})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, logFile, cfg.Log.OutputPath)
	assert.Equal(t, time.Minute, cfg.Sheet.DedupTTL)
	assert.Equal(t, path, res.ConfigPath)
	assert.DirExists(t, filepath.Join(dir, "logs"))
	assert.Equal(t, path, res.Manager.ConfigFile())
}

// TestLoadConfigMissingFile 测试配置文件不存在
func TestLoadConfigMissingFile(t *testing.T) {
	var cfg section
	_, err := LoadConfig(&cfg, []string{"--config", filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}

// TestInfoString 测试版本信息
func TestInfoString(t *testing.T) {
	info := GetInfo()
	assert.Contains(t, info.String(), info.GoVersion)
	assert.NotEmpty(t, info.Platform)
}
