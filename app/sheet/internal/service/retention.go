package service

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
)

// RetentionJobName 清理任务名
const RetentionJobName = "sheet-retention"

// RetentionConfig 过期表清理配置，未设置的 TTL 取默认值，设为负数时关闭对应规则
type RetentionConfig struct {
	// Spec cron 表达式
	Spec string `mapstructure:"spec" json:"spec" validate:"required"`
	// EmptySheetTTL 没有物品的表在最后一次更新后保留多久
	EmptySheetTTL time.Duration `mapstructure:"empty_sheet_ttl" json:"empty_sheet_ttl"`
	// StaleSheetTTL 任意表在最后一次更新后保留多久
	StaleSheetTTL time.Duration `mapstructure:"stale_sheet_ttl" json:"stale_sheet_ttl"`
}

// DefaultRetentionConfig 默认配置
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Spec:          "@every 10m",
		EmptySheetTTL: 24 * time.Hour,
		StaleSheetTTL: 90 * 24 * time.Hour,
	}
}

// Purger 按更新时间删除表
type Purger interface {
	PurgeEmpty(ctx context.Context, before time.Time) ([]string, error)
	PurgeStale(ctx context.Context, before time.Time) ([]string, error)
}

// Evicter 删除表的缓存
type Evicter interface {
	Evict(ctx context.Context, ids ...string) error
}

// RetentionService 定期清理空表与长期未访问的表
type RetentionService struct {
	purger  Purger
	evicter Evicter
	metrics *metrics.SheetMetrics
	logger  logger.Logger
	now     func() time.Time

	mu  sync.RWMutex
	cfg RetentionConfig
}

var _ scheduler.Job = (*RetentionService)(nil)

// NewRetentionService 创建清理服务
func NewRetentionService(cfg *RetentionConfig, p Purger, e Evicter, m *metrics.SheetMetrics, l logger.Logger) (*RetentionService, error) {
	r := &RetentionService{
		purger:  p,
		evicter: e,
		metrics: m,
		logger:  l.Named("service.retention"),
		now:     time.Now,
	}
	if err := r.Update(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Update 替换配置，热更新时调用
func (r *RetentionService) Update(cfg *RetentionConfig) error {
	newCfg, err := config.MergeConfig(DefaultRetentionConfig(), cfg)
	if err != nil {
		return errors.Wrap(err, "merge retention config")
	}
	if err := config.NewValidator().Validate(newCfg); err != nil {
		return err
	}
	if err := scheduler.ValidateSpec(newCfg.Spec); err != nil {
		return err
	}

	r.mu.Lock()
	r.cfg = *newCfg
	r.mu.Unlock()
	return nil
}

// Config 当前配置
func (r *RetentionService) Config() RetentionConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *RetentionService) Name() string { return RetentionJobName }

// Run 执行一次清理
func (r *RetentionService) Run(ctx context.Context) error {
	cfg := r.Config()
	now := r.now()

	var errs error
	if cfg.EmptySheetTTL > 0 {
		ids, err := r.purger.PurgeEmpty(ctx, now.Add(-cfg.EmptySheetTTL))
		errs = errors.CombineErrors(errs, err)
		r.purged(ctx, "empty", ids)
	}
	if cfg.StaleSheetTTL > 0 {
		ids, err := r.purger.PurgeStale(ctx, now.Add(-cfg.StaleSheetTTL))
		errs = errors.CombineErrors(errs, err)
		r.purged(ctx, "stale", ids)
	}
	return errs
}

func (r *RetentionService) purged(ctx context.Context, reason string, ids []string) {
	if len(ids) == 0 {
		return
	}
	r.metrics.RecordPurge(reason, len(ids))
	r.logger.InfoContext(ctx, "sheets purged", "reason", reason, "count", len(ids))

	if err := r.evicter.Evict(ctx, ids...); err != nil {
		r.logger.WarnContext(ctx, "evict purged sheets failed", "reason", reason, "error", err)
	}
}
