package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/partysheet/app/robot/internal/scenario"
	"github.com/lk2023060901/partysheet/pkg/config"
	"github.com/lk2023060901/partysheet/pkg/logger"
	"github.com/lk2023060901/partysheet/pkg/sheetsync"
)

var (
	configPath = pflag.StringP("config", "c", "", "配置文件，读取其中的 sync 段")
	baseURL    = pflag.String("base-url", "", "网关地址，覆盖配置文件")
	sheetID    = pflag.String("sheet", "", "已有表 id，为空时新建")
	robots     = pflag.IntP("robots", "n", 3, "并发机器人数量")
	characters = pflag.Int("characters", 2, "每个机器人招募的角色数")
	items      = pflag.Int("items", 5, "每个机器人添加的物品数")
	edits      = pflag.Int("edits", 10, "每个机器人随机修改次数")
	seed       = pflag.Uint64("seed", uint64(time.Now().UnixNano()), "随机种子")
	recentPath = pflag.String("recent", "", "最近访问列表文件")
	logLevel   = pflag.String("log-level", "info", "日志等级")
)

func main() {
	pflag.Parse()

	l, err := logger.New(&logger.Config{
		Level:         logger.Level(*logLevel),
		Format:        logger.ConsoleFormat,
		EnableConsole: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, l); err != nil {
		l.Error("robot run failed", "error", err)
		_ = l.Sync()
		os.Exit(1)
	}
}

func loadSyncConfig() (*sheetsync.Config, error) {
	cfg := sheetsync.DefaultConfig()
	if *configPath != "" {
		mgr := config.NewManager(config.WithEnvPrefix("PARTYSHEET_ROBOT"))
		if err := mgr.LoadFile(*configPath); err != nil {
			return nil, err
		}
		var fileCfg sheetsync.Config
		if err := mgr.UnmarshalKey("sync", &fileCfg); err != nil {
			return nil, err
		}
		merged, err := config.MergeConfig(cfg, &fileCfg)
		if err != nil {
			return nil, err
		}
		cfg = merged
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, l logger.Logger) error {
	cfg, err := loadSyncConfig()
	if err != nil {
		return err
	}

	gw, err := sheetsync.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.SendTimeout})
	if err != nil {
		return err
	}

	var recent *sheetsync.RecentStore
	if path := firstNonEmpty(*recentPath, cfg.RecentPath); path != "" {
		recent, err = sheetsync.OpenRecent(path, cfg.MaxRecent)
		if err != nil {
			return err
		}
		defer recent.Close()
	}

	id := *sheetID
	if id == "" {
		id, err = gw.Create(ctx, "Robot Party")
		if err != nil {
			return err
		}
		l.Info("sheet created", "sheet_id", id)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	bots := make([]*scenario.Robot, 0, *robots)
	for i := 0; i < *robots; i++ {
		opts := scenario.Options{
			Characters: *characters,
			Items:      *items,
			Edits:      *edits,
			Seed:       *seed + uint64(i),
		}
		if i == 0 {
			opts.Rename = fmt.Sprintf("Robot Party x%d", *robots)
		}
		bots = append(bots, scenario.NewRobot(fmt.Sprintf("robot-%d", i+1), gw, cfg, opts, recent, l))
	}
	defer func() {
		for _, b := range bots {
			_ = b.Close()
		}
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for _, b := range bots {
		g.Go(func() error {
			return b.Workflow(runCtx, id).Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	l.Info("all robots finished", "sheet_id", id, "elapsed", time.Since(start))

	server, err := scenario.Converged(ctx, gw, id, bots)
	for _, b := range bots {
		sent, rejected := b.Stats()
		l.Info("robot stats", "robot", b.Name(), "sent", sent, "rejected", rejected)
	}
	if err != nil {
		return err
	}

	totals := server.Totals()
	l.Info("robots converged",
		"sheet_id", id,
		"name", server.Name,
		"items", len(server.Items),
		"characters", len(server.Characters),
		"quantity", totals.Quantity,
		"weight", totals.Weight.String(),
		"value", totals.Value.String(),
	)
	for _, load := range server.Encumbrance() {
		l.Info("encumbrance",
			"character", load.Name,
			"carried", load.Carried.String(),
			"capacity", load.Capacity.String(),
			"overloaded", load.Overloaded,
		)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
