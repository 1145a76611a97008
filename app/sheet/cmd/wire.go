//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/lk2023060901/partysheet/app/sheet/internal/alert"
	"github.com/lk2023060901/partysheet/app/sheet/internal/service"
	"github.com/lk2023060901/partysheet/pkg/app"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
)

func InitApp(cfg *Config, l *logger.BaseLogger, mgr config.Manager) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,
		wire.Bind(new(logger.Logger), new(*logger.BaseLogger)),

		// 2. 观测：追踪、错误上报、指标
		provideTracer,
		provideSentry,
		provideAlert,
		wire.Bind(new(service.Reporter), new(*alert.Reporter)),
		providePrometheus,
		provideMetrics,
		provideHTTPMetrics,

		// 3. ID 生成
		provideIDGenerator,

		// 4. 数据层
		providePostgres,
		provideRedis,
		provideSheetDAO,
		provideCacheDAO,

		// 5. 变更流
		provideJournal,

		// 6. 业务层
		provideSheetService,
		provideRetentionService,
		provideScheduler,

		// 7. 接口层
		provideRateLimiter,
		provideWebServer,

		// 8. 热更新
		newReloader,

		// 9. 组装
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}
