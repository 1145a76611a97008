package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/web/middleware"
)

// Server Web 服务核心结构
type Server struct {
	engine *gin.Engine
	config *Config
	logger logger.Logger
	server *http.Server
	errCh  chan error
}

// Option Server 选项
type Option func(*options)

type options struct {
	reporter middleware.PanicReporter
}

// WithPanicReporter 在 Recovery 中上报 panic（如 sentry）
func WithPanicReporter(r middleware.PanicReporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// NewServer 创建 Web 服务，挂载 Tracing、Logger、Recovery 基础中间件
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	gin.SetMode(merged.Mode)
	engine := gin.New()

	// Tracing 需在 Logger 之前，便于日志携带 trace_id
	engine.Use(middleware.Tracing(merged.ServiceName))
	engine.Use(middleware.Logger(l.Named("web.access")))
	engine.Use(middleware.Recovery(l.Named("web.recovery"), o.reporter))

	return &Server{
		engine: engine,
		config: merged,
		logger: l.Named("web.server"),
	}, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler 接口
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 非阻塞启动监听，监听失败通过 Err 通道返回
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	s.errCh = make(chan error, 1)

	go func() {
		defer close(s.errCh)
		var err error
		if s.config.EnableTLS {
			s.logger.Info("starting https server", "addr", ln.Addr().String())
			err = s.server.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "error", err)
			s.errCh <- err
		}
	}()
	return nil
}

// Err 服务异常退出时收到错误，正常关闭时通道关闭
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Stop 在 ShutdownTimeout 内优雅关闭
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited")
	return nil
}

// Run 启动服务并阻塞，收到退出信号或 ctx 取消后优雅关机
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-s.errCh:
		if ok {
			return err
		}
		return nil
	case <-quit:
		s.logger.Info("shutting down server...")
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down...")
	}

	return s.Stop()
}
