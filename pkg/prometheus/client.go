package prometheus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
)

// Collector 采集器接口
type Collector = prometheus.Collector

// Client Prometheus 客户端，持有独立的 Registry
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	counters   sync.Map // name -> *prometheus.CounterVec
	gauges     sync.Map // name -> *prometheus.GaugeVec
	histograms sync.Map // name -> *prometheus.HistogramVec

	httpServer *http.Server
	wg         conc.WaitGroup
	closed     atomic.Bool
}

// New 创建 Prometheus 客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}

	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if cfg.HTTPServer.Enabled {
		c.startHTTPServer()
	}

	return c, nil
}

// Registry 底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 指标 HTTP Handler
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Config 配置
func (c *Client) Config() *Config {
	return c.config
}

func (c *Client) startHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	c.wg.Go(func() {
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server stopped", "addr", c.config.HTTPServer.Addr, "error", err)
		}
	})
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	if c.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.httpServer.Shutdown(ctx)
	c.wg.Wait()
	return err
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
