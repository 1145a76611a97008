package main

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/partysheet/app/sheet/internal/alert"
	"github.com/lk2023060901/partysheet/app/sheet/internal/dao"
	"github.com/lk2023060901/partysheet/app/sheet/internal/handler"
	"github.com/lk2023060901/partysheet/app/sheet/internal/journal"
	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/app"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/database/postgres"
	"github.com/lk2023060901/partysheet/pkg/database/redis"
	"github.com/lk2023060901/partysheet/pkg/idgen"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/otel"
	"github.com/lk2023060901/partysheet/pkg/prometheus"
	"github.com/lk2023060901/partysheet/pkg/scheduler"
	"github.com/lk2023060901/partysheet/pkg/sentry"
	"github.com/lk2023060901/partysheet/pkg/web"
	webmetrics "github.com/lk2023060901/partysheet/pkg/web/metrics"
	"github.com/lk2023060901/partysheet/pkg/web/middleware"
)

const migrateTimeout = 30 * time.Second

// provideTracer 启用时设置全局 TracerProvider，gin 与 kafka 中间件从全局取 tracer
func provideTracer(cfg *Config) (*otel.TracerProvider, func(), error) {
	tp, err := otel.New(&cfg.Otel)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create tracer provider")
	}
	return tp, func() { _ = tp.Close() }, nil
}

func provideSentry(cfg *Config) (*sentry.Client, func(), error) {
	c, err := sentry.New(&cfg.Sentry)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create sentry client")
	}
	return c, func() { _ = c.Close() }, nil
}

func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, func(), error) {
	c, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create prometheus client")
	}
	return c, func() { _ = c.Close() }, nil
}

// provideAlert 不变量错误与定时任务失败推送到飞书，未配置 webhook 时只走 sentry
func provideAlert(cfg *Config, sentryClient *sentry.Client, l logger.Logger) (*alert.Reporter, func(), error) {
	n, err := alert.NewNotifier(&cfg.Alert)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create alert notifier")
	}
	r := alert.New(&cfg.Alert, sentryClient, n, l)
	return r, func() { _ = r.Close() }, nil
}

// provideMetrics 创建业务指标并注册到 Prometheus
func provideMetrics(cfg *Config, promClient *prometheus.Client) (*metrics.SheetMetrics, func(), error) {
	m, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Register(promClient.Registry()); err != nil {
		m.Stop()
		return nil, nil, errors.Wrap(err, "register sheet metrics")
	}
	return m, m.Stop, nil
}

func provideHTTPMetrics(cfg *Config, promClient *prometheus.Client) (*webmetrics.HTTPMetrics, error) {
	ns := cfg.Metrics.Namespace
	if ns == "" {
		ns = metrics.DefaultConfig().Namespace
	}
	m := webmetrics.New(ns)
	if err := m.Register(promClient.Registry()); err != nil {
		return nil, errors.Wrap(err, "register http metrics")
	}
	return m, nil
}

// provideIDGenerator 初始化全局 sonyflake，服务层通过 idgen.NextString 取表 id
func provideIDGenerator(cfg *Config) (idgen.Generator, error) {
	g, err := idgen.NewSonyflake(cfg.IDGen.MachineID)
	if err != nil {
		return nil, err
	}
	idgen.Init(g)
	return g, nil
}

func providePostgres(cfg *Config, l logger.Logger) (*postgres.Client, func(), error) {
	db, err := postgres.New(&cfg.Postgres, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect postgres")
	}
	return db, db.Close, nil
}

func provideRedis(cfg *Config, l logger.Logger) (*redis.Client, func(), error) {
	rdb, err := redis.NewClient(&cfg.Redis, l)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

// provideSheetDAO 创建 DAO 并确保表结构存在
func provideSheetDAO(db *postgres.Client, l logger.Logger) (*dao.SheetDAO, error) {
	d := dao.NewSheetDAO(db, l)
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := d.Migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func provideCacheDAO(cfg *Config, rdb *redis.Client, l logger.Logger) (*dao.CacheDAO, error) {
	return dao.NewCacheDAO(rdb, &cfg.Sheet, l)
}

func provideJournal(cfg *Config, l logger.Logger) (journal.Publisher, func(), error) {
	pub, err := journal.New(&cfg.Journal, l)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() { _ = pub.Close() }, nil
}

func provideSheetService(
	sheets *dao.SheetDAO,
	cache *dao.CacheDAO,
	pub journal.Publisher,
	m *metrics.SheetMetrics,
	reporter service.Reporter,
	_ idgen.Generator,
	l logger.Logger,
) *service.SheetService {
	return service.NewSheetService(sheets, cache, pub, m, l, service.WithReporter(reporter))
}

func provideRetentionService(cfg *Config, sheets *dao.SheetDAO, cache *dao.CacheDAO, m *metrics.SheetMetrics, l logger.Logger) (*service.RetentionService, error) {
	return service.NewRetentionService(&cfg.Retention, sheets, cache, m, l)
}

// provideScheduler 注册清理任务，调度在 app 启动时开始
func provideScheduler(retention *service.RetentionService, alerts *alert.Reporter, l logger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(l)
	if err := s.Register(retention.Config().Spec, alerts.Watch(retention)); err != nil {
		return nil, errors.Wrap(err, "register retention job")
	}
	return s, nil
}

func provideRateLimiter(cfg *Config, l logger.Logger) (*middleware.RateLimiter, func(), error) {
	rlCfg, err := config.MergeConfig(middleware.DefaultRateLimitConfig(), &cfg.RateLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "merge rate limit config")
	}
	rl := middleware.NewRateLimiter(l.Named("web.ratelimit"), rlCfg)
	return rl, func() { _ = rl.Close() }, nil
}

// provideWebServer 组装中间件与路由
func provideWebServer(
	cfg *Config,
	svc *service.SheetService,
	reporter service.Reporter,
	panicReporter *sentry.Client,
	httpMetrics *webmetrics.HTTPMetrics,
	rateLimiter *middleware.RateLimiter,
	promClient *prometheus.Client,
	_ *otel.TracerProvider,
	l logger.Logger,
) (*web.Server, error) {
	srv, err := web.NewServer(&cfg.Web, l, web.WithPanicReporter(panicReporter))
	if err != nil {
		return nil, errors.Wrap(err, "create web server")
	}

	r := srv.Router()
	r.Use(middleware.Tracing(cfg.Web.ServiceName))
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.Metrics(httpMetrics))
	r.Use(middleware.RateLimit(rateLimiter))

	handler.NewSheetHandler(svc, reporter, l).Register(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promClient.Handler()))
	return srv, nil
}

func provideAppOptions(cfg *Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
	}
}

func provideAppComponents(
	webServer *web.Server,
	sched *scheduler.Scheduler,
	reload *reloader,
) app.Components {
	return app.Components{
		Servers: []app.Server{
			webServer,
			sched,
			reload,
		},
	}
}
