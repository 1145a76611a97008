// Package alert 把需要人工介入的错误推送到运维群
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/cache/lru"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/notify"
	"github.com/lk2023060901/partysheet/pkg/notify/feishu"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
)

// Config 告警配置
type Config struct {
	// Feishu 飞书机器人，webhook_url 为空时只上报 sentry
	Feishu feishu.Config `mapstructure:"feishu" json:"feishu"`
	// Cooldown 相同指纹的告警最短间隔
	Cooldown time.Duration `mapstructure:"cooldown" json:"cooldown"`
	// Service 告警标题中的服务名
	Service    string `mapstructure:"service" json:"service"`
	RunbookURL string `mapstructure:"runbook_url" json:"runbook_url"`
	// SendTimeout 单次推送超时
	SendTimeout time.Duration `mapstructure:"send_timeout" json:"send_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Cooldown:    10 * time.Minute,
		Service:     "partysheet",
		SendTimeout: 10 * time.Second,
	}
}

// NewNotifier 按配置选择通知渠道
func NewNotifier(cfg *Config) (notify.Notifier, error) {
	if !cfg.Feishu.Enabled() {
		return notify.Noop(), nil
	}
	return feishu.NewAdapter(&cfg.Feishu)
}

// Reporter 在错误上报之上叠加群告警
// 不变量被破坏时除上报外还会推送告警，同一指纹在冷却期内只推一次
type Reporter struct {
	next     service.Reporter
	notifier notify.Notifier
	cfg      Config
	logger   logger.Logger
	now      func() time.Time

	// recent 冷却期内发过的指纹，TTL 即冷却时间
	recent *lru.LRU[string, struct{}]

	mu     sync.Mutex
	wg     conc.WaitGroup
	closed bool
}

// Option 告警上报器选项
type Option func(*Reporter)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

var _ service.Reporter = (*Reporter)(nil)

// New 创建告警上报器，next 为底层错误上报，可以为 nil
func New(cfg *Config, next service.Reporter, n notify.Notifier, l logger.Logger, opts ...Option) *Reporter {
	c := *DefaultConfig()
	if cfg != nil {
		if cfg.Cooldown > 0 {
			c.Cooldown = cfg.Cooldown
		}
		if cfg.Service != "" {
			c.Service = cfg.Service
		}
		if cfg.SendTimeout > 0 {
			c.SendTimeout = cfg.SendTimeout
		}
		c.RunbookURL = cfg.RunbookURL
		c.Feishu = cfg.Feishu
	}
	if n == nil {
		n = notify.Noop()
	}

	r := &Reporter{
		next:     next,
		notifier: n,
		cfg:      c,
		logger:   l.Named("alert"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.recent = lru.New[string, struct{}](
		&lru.Config{MaxSize: 256, DefaultTTL: c.Cooldown},
		lru.WithClock[string, struct{}](r.now),
	)
	return r
}

// CaptureError 上报错误，不变量错误额外推送严重告警
func (r *Reporter) CaptureError(ctx context.Context, err error, tags map[string]string) string {
	var eventID string
	if r.next != nil {
		eventID = r.next.CaptureError(ctx, err, tags)
	}
	if err == nil || !errors.Is(err, service.ErrInvariant) {
		return eventID
	}

	labels := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		labels[k] = v
	}
	if eventID != "" {
		labels["sentry_event"] = eventID
	}
	r.Notify(&notify.Alert{
		Level:       notify.AlertLevelCritical,
		Summary:     "sheet invariant violated",
		Description: err.Error(),
		Labels:      labels,
		Fingerprint: "invariant:" + tags["action_type"],
		AtAll:       true,
	})
	return eventID
}

// Watch 包装定时任务，任务失败时推送告警
func (r *Reporter) Watch(job scheduler.Job) scheduler.Job {
	return scheduler.JobFunc{
		JobName: job.Name(),
		Fn: func(ctx context.Context) error {
			err := job.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.Notify(&notify.Alert{
					Level:       notify.AlertLevelWarning,
					Summary:     fmt.Sprintf("job %s failed", job.Name()),
					Description: err.Error(),
					Labels:      map[string]string{"job": job.Name()},
					Fingerprint: "job:" + job.Name(),
				})
			}
			return err
		},
	}
}

// Notify 异步推送告警，返回是否真正发出（冷却期内或已关闭时返回 false）
func (r *Reporter) Notify(a *notify.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if a.Fingerprint != "" && !r.recent.SetIfAbsent(a.Fingerprint, struct{}{}) {
		return false
	}

	alert := *a
	alert.Service = r.cfg.Service
	alert.RunbookURL = r.cfg.RunbookURL
	if alert.StartsAt.IsZero() {
		alert.StartsAt = r.now()
	}

	r.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.SendTimeout)
		defer cancel()
		if err := r.notifier.Send(ctx, &alert); err != nil {
			r.logger.Warn("failed to send alert",
				"notifier", r.notifier.Name(),
				"summary", alert.Summary,
				"error", err,
			)
		}
	})
	return true
}

// Close 等待未完成的推送
func (r *Reporter) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	return r.recent.Close()
}
