package main

import (
	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
)

// reloader 配置文件变更时更新日志等级与清理策略
type reloader struct {
	mgr       config.Manager
	base      *logger.BaseLogger
	retention *service.RetentionService
	sched     *scheduler.Scheduler
	logger    logger.Logger
}

func newReloader(mgr config.Manager, base *logger.BaseLogger, retention *service.RetentionService, sched *scheduler.Scheduler) *reloader {
	return &reloader{
		mgr:       mgr,
		base:      base,
		retention: retention,
		sched:     sched,
		logger:    base.Named("config.reload"),
	}
}

func (r *reloader) Start() error {
	return r.mgr.Watch(r.reload)
}

// Stop fsnotify 监听随进程退出
func (r *reloader) Stop() error { return nil }

func (r *reloader) reload() {
	var next Config
	if err := r.mgr.Unmarshal(&next); err != nil {
		r.logger.Error("failed to reload config", "error", err)
		return
	}

	if next.Log.Level != "" && next.Log.Level != r.base.Level() {
		r.logger.Info("log level changed", "from", r.base.Level(), "to", next.Log.Level)
		r.base.SetLevel(next.Log.Level)
	}

	if err := r.retention.Update(&next.Retention); err != nil {
		r.logger.Error("invalid retention config, keeping previous", "error", err)
		return
	}
	cfg := r.retention.Config()
	if err := r.sched.Reschedule(service.RetentionJobName, cfg.Spec); err != nil {
		r.logger.Error("failed to reschedule retention", "spec", cfg.Spec, "error", err)
		return
	}
	r.logger.Info("retention config reloaded",
		"spec", cfg.Spec,
		"empty_ttl", cfg.EmptySheetTTL,
		"stale_ttl", cfg.StaleSheetTTL,
	)
}
