package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics HTTP 服务指标
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New 创建 HTTP 指标，namespace 为空时使用 "http"
func New(namespace string) *HTTPMetrics {
	if namespace == "" {
		namespace = "http"
	}
	return &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
}

// Register 注册到指定的注册器
func (m *HTTPMetrics) Register(registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration} {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe 记录一次请求
func (m *HTTPMetrics) Observe(path, method, status string, latency time.Duration) {
	m.requestsTotal.WithLabelValues(path, method, status).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(latency.Seconds())
}
