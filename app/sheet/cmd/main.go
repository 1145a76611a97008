package main

import (
	"os"

	"github.com/lk2023060901/partysheet/app/sheet/internal/alert"
	"github.com/lk2023060901/partysheet/app/sheet/internal/dao"
	"github.com/lk2023060901/partysheet/app/sheet/internal/handler"
	"github.com/lk2023060901/partysheet/app/sheet/internal/journal"
	"github.com/lk2023060901/partysheet/app/sheet/internal/metrics"
	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/app"
	"github.com/lk2023060901/partysheet/pkg/database/postgres"
	"github.com/lk2023060901/partysheet/pkg/database/redis"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/otel"
	"github.com/lk2023060901/partysheet/pkg/prometheus"
	"github.com/lk2023060901/partysheet/pkg/sentry"
	"github.com/lk2023060901/partysheet/pkg/web"
	"github.com/lk2023060901/partysheet/pkg/web/middleware"
	"github.com/lk2023060901/partysheet/pkg/web/validator"
)

// Config 物品表服务完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// Web Server 配置
	Web       web.Config                 `mapstructure:"web"`
	CORS      middleware.CORSConfig      `mapstructure:"cors"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`

	// 存储
	Postgres postgres.Config `mapstructure:"postgres"`
	Redis    redis.Config    `mapstructure:"redis"`

	// 缓存、去重与表锁
	Sheet dao.CacheConfig `mapstructure:"sheet"`

	// 定期清理
	Retention service.RetentionConfig `mapstructure:"retention"`

	// 变更流（可选）
	Journal journal.Config `mapstructure:"journal"`

	// 观测
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Sentry     sentry.Config     `mapstructure:"sentry"`
	Otel       otel.Config       `mapstructure:"otel"`

	// 群告警（可选）
	Alert alert.Config `mapstructure:"alert"`

	IDGen IDGenConfig `mapstructure:"idgen"`
}

// IDGenConfig sonyflake 机器号，多实例部署时必须互不相同
type IDGenConfig struct {
	MachineID uint16 `mapstructure:"machine_id"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	loaded, err := app.LoadConfig(&cfg, os.Args[1:])
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log,
		logger.WithHooks(logger.RedactHook("password", "secret", "dsn", "webhook_url")),
	)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	// 3. 请求校验错误使用 json 字段名
	if err := validator.Init(handler.Rules()...); err != nil {
		panic(err)
	}

	// 4. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l, loaded.Manager)
	if err != nil {
		l.Error("failed to initialize application", "config", loaded.ConfigPath, "error", err)
		_ = l.Sync()
		os.Exit(1)
	}
	defer cleanup()

	// 5. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
