package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce 名称冲突时返回 ErrMetricExists，注册失败回滚占位
func registerOnce[T Collector](c *Client, store interfaceStore, name string, build func() T) (T, error) {
	var zero T
	if c.IsClosed() {
		return zero, ErrClientClosed
	}
	if _, loaded := store.LoadOrStore(name, nil); loaded {
		return zero, ErrMetricExists
	}

	m := build()
	if err := c.registry.Register(m); err != nil {
		store.Delete(name)
		return zero, err
	}
	store.Store(name, m)
	return m, nil
}

type interfaceStore interface {
	LoadOrStore(key, value any) (any, bool)
	Store(key, value any)
	Delete(key any)
}

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*prometheus.CounterVec, error) {
	return registerOnce(c, &c.counters, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	})
}

// MustNewCounter 创建 Counter，失败则 panic
func (c *Client) MustNewCounter(name, help string, labels []string) *prometheus.CounterVec {
	m, err := c.NewCounter(name, help, labels)
	if err != nil {
		panic(err)
	}
	return m
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*prometheus.GaugeVec, error) {
	return registerOnce(c, &c.gauges, name, func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	})
}

// MustNewGauge 创建 Gauge，失败则 panic
func (c *Client) MustNewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	m, err := c.NewGauge(name, help, labels)
	if err != nil {
		panic(err)
	}
	return m
}

// NewHistogram 创建并注册 Histogram，buckets 为空时使用 DefBuckets
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*prometheus.HistogramVec, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return registerOnce(c, &c.histograms, name, func() *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	})
}

// MustNewHistogram 创建 Histogram，失败则 panic
func (c *Client) MustNewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	m, err := c.NewHistogram(name, help, labels, buckets)
	if err != nil {
		panic(err)
	}
	return m
}

// RegisterCollector 注册自定义采集器
func (c *Client) RegisterCollector(collector Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	return c.registry.Register(collector)
}
