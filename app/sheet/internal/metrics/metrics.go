package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/metrics/sliding"
	"github.com/lk2023060901/partysheet/pkg/metrics/system"
)

// 动作处理结果标签
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	// SystemCollectInterval 系统指标采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval" yaml:"system_collect_interval"`
	// SlidingWindow 动作速率滑动窗口
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:             "partysheet",
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// SheetMetrics 物品表服务指标
type SheetMetrics struct {
	config *Config

	// 动作总数，按类型与结果
	ActionTotal *prometheus.CounterVec
	// 动作应用耗时
	ActionDuration *prometheus.HistogramVec
	// 快照缓存命中
	CacheTotal *prometheus.CounterVec
	// 清理的表数量，按原因
	PurgedTotal *prometheus.CounterVec

	systemCollector *system.Collector
	slidingWindow   *sliding.Window
}

// New 创建指标
func New(cfg *Config) (*SheetMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge metrics config")
	}

	sysCollector, err := system.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create system collector")
	}

	slidingWindow, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sliding window")
	}

	m := &SheetMetrics{
		config: newCfg,

		ActionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "actions_total",
				Help:      "动作总数",
			},
			[]string{"type", "result"},
		),

		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "action_duration_seconds",
				Help:      "动作应用耗时（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"type"},
		),

		CacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "snapshot_cache_total",
				Help:      "快照缓存查询次数",
			},
			[]string{"result"},
		),

		PurgedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "sheets_purged_total",
				Help:      "清理的物品表数量",
			},
			[]string{"reason"},
		),

		systemCollector: sysCollector,
		slidingWindow:   slidingWindow,
	}

	sysCollector.Start(newCfg.SystemCollectInterval)

	return m, nil
}

// Register 注册指标到 Prometheus Registry
func (m *SheetMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ActionTotal,
		m.ActionDuration,
		m.CacheTotal,
		m.PurgedTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Name:      "actions_per_second",
			Help:      "滑动窗口内每秒动作数",
		}, m.slidingWindow.GetQPS),
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return m.systemCollector.Register(registerer, m.config.Namespace)
}

// RecordAction 记录一次动作处理
func (m *SheetMetrics) RecordAction(actionType, result string, duration float64) {
	m.ActionTotal.WithLabelValues(actionType, result).Inc()
	if result == ResultApplied {
		m.ActionDuration.WithLabelValues(actionType).Observe(duration)
	}
	m.slidingWindow.Record(duration, result == ResultApplied || result == ResultDuplicate)
}

// RecordCache 记录快照缓存命中或未命中
func (m *SheetMetrics) RecordCache(hit bool) {
	result := "hit"
	if !hit {
		result = "miss"
	}
	m.CacheTotal.WithLabelValues(result).Inc()
}

// RecordPurge 记录清理数量
func (m *SheetMetrics) RecordPurge(reason string, n int) {
	if n > 0 {
		m.PurgedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// GetStats 获取统计数据
func (m *SheetMetrics) GetStats() Stats {
	windowStats := m.slidingWindow.GetStats()
	sysStats := m.systemCollector.GetStats()

	return Stats{
		ActionsPerSecond: windowStats.QPS,
		AvgLatency:       windowStats.AvgLatency,
		SuccessRate:      windowStats.SuccessRate,
		CPUPercent:       sysStats.CPUPercent,
		MemoryPercent:    sysStats.MemoryPercent,
		MemoryBytes:      sysStats.MemoryBytes,
		Goroutines:       sysStats.Goroutines,
	}
}

// Stats 统计数据
type Stats struct {
	ActionsPerSecond float64 `json:"actions_per_second"`
	AvgLatency       float64 `json:"avg_latency"`
	SuccessRate      float64 `json:"success_rate"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	MemoryBytes      uint64  `json:"memory_bytes"`
	Goroutines       int     `json:"goroutines"`
}

// Stop 停止指标收集
func (m *SheetMetrics) Stop() {
	m.systemCollector.Stop()
}
