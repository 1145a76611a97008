package sliding

import (
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/partysheet/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	WindowSize  time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	BucketCount int           `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count"`
}

// DefaultWindowConfig 默认 60s / 60 个桶
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Enabled:     true,
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

type bucket struct {
	// epoch 桶所属的时间片序号，过期的桶在写入时被重置
	epoch      int64
	count      int64
	totalTime  float64
	minLatency float64
	maxLatency float64
	successCnt int64
	failureCnt int64
}

// Window 按时间片分桶的滑动窗口，桶在访问时惰性轮转
type Window struct {
	config   *WindowConfig
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets []bucket
}

// Option 窗口选项
type Option func(*Window)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(w *Window) {
		w.now = now
	}
}

// NewWindow 创建滑动窗口
func NewWindow(cfg *WindowConfig, opts ...Option) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge window config: %w", err)
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize < time.Duration(newCfg.BucketCount) {
		return nil, fmt.Errorf("invalid window: size=%s buckets=%d", newCfg.WindowSize, newCfg.BucketCount)
	}

	w := &Window{
		config:   newCfg,
		interval: newCfg.WindowSize / time.Duration(newCfg.BucketCount),
		now:      time.Now,
		buckets:  make([]bucket, newCfg.BucketCount),
	}
	for _, opt := range opts {
		opt(w)
	}
	for i := range w.buckets {
		w.buckets[i].epoch = -1
	}
	return w, nil
}

func (w *Window) epoch(t time.Time) int64 {
	return t.UnixNano() / int64(w.interval)
}

// Record 记录一次事件，latency 单位秒
func (w *Window) Record(latency float64, success bool) {
	if !w.config.Enabled {
		return
	}

	e := w.epoch(w.now())

	w.mu.Lock()
	defer w.mu.Unlock()

	b := &w.buckets[e%int64(len(w.buckets))]
	if b.epoch != e {
		*b = bucket{epoch: e, minLatency: -1}
	}

	b.count++
	b.totalTime += latency
	if success {
		b.successCnt++
	} else {
		b.failureCnt++
	}
	if b.minLatency < 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}
}

// Stats 统计结果
type Stats struct {
	QPS          float64 `json:"qps"`
	AvgLatency   float64 `json:"avg_latency"`
	MinLatency   float64 `json:"min_latency"`
	MaxLatency   float64 `json:"max_latency"`
	SuccessRate  float64 `json:"success_rate"`
	TotalCount   int64   `json:"total_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
}

// GetStats 汇总窗口内的桶
func (w *Window) GetStats() Stats {
	current := w.epoch(w.now())
	oldest := current - int64(len(w.buckets)) + 1

	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		stats     Stats
		totalTime float64
	)
	minLatency := float64(-1)

	for _, b := range w.buckets {
		if b.epoch < oldest || b.epoch > current {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		stats.FailureCount += b.failureCnt
		totalTime += b.totalTime

		if b.minLatency >= 0 && (minLatency < 0 || b.minLatency < minLatency) {
			minLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
	}

	stats.QPS = float64(stats.TotalCount) / w.config.WindowSize.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	if minLatency >= 0 {
		stats.MinLatency = minLatency
	}
	return stats
}

// GetQPS 每秒事件数
func (w *Window) GetQPS() float64 {
	return w.GetStats().QPS
}
