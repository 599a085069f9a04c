package initialize

import (
	"context"
	"fmt"
	"time"

	"satguard/app/db"
	"satguard/app/models"
	"satguard/app/notify"
	"satguard/app/repo"
	"satguard/app/services"
	"satguard/config"
	"satguard/global"
	"satguard/logger"

	"github.com/redis/go-redis/v9"
)

type App struct {
	Cfg        *config.Config
	Hub        *notify.Hub
	Commands   *services.CommandService
	Judge      *services.JudgeService
	Completion *services.CompletionService
	Ingest     *services.IngestService
	Monitor    *services.MonitorService
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	log, err := logger.Init(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	global.Logger = log

	cfg.Watch(func(fresh *config.Config) {
		logger.SetLevel(fresh.LogLevel)
		global.Logger.Info().Str("level", fresh.LogLevel).Msg("config reloaded")
	})

	gdb, err := db.Connect(db.Config{Host: cfg.DB.Host, Port: cfg.DB.Port, User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(&models.Command{}, &models.TelemetryParam{}, &models.JudgmentRule{}, &models.TelemetrySample{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	global.Rdb = rdb

	commandRepo := repo.NewCommandRepository(gdb)
	ruleRepo := repo.NewRuleRepository(gdb)
	paramRepo := repo.NewParamRepository(gdb)
	sampleRepo := repo.NewSampleRepository(gdb)

	hub := notify.NewHub(cfg.Notify.QueueSize, rdb, log)
	formulaSvc := services.NewFormulaService(log)
	judgeSvc := services.NewJudgeService(ruleRepo, paramRepo, sampleRepo, formulaSvc, log)
	completionSvc := services.NewCompletionService(ruleRepo, sampleRepo)
	commandSvc := services.NewCommandService(commandRepo, hub, rdb, log)
	ingestSvc := services.NewIngestService(commandSvc, judgeSvc, completionSvc, hub, rdb, cfg.Bus.Channel, log)

	monitorCfg := services.MonitorConfig{
		TimeoutInterval:   cfg.Monitor.TimeoutInterval,
		ResyncInterval:    cfg.Monitor.ResyncInterval,
		StatsInterval:     cfg.Monitor.StatsInterval,
		RetentionInterval: cfg.Monitor.RetentionInterval,
		Retention:         time.Duration(cfg.Monitor.RetentionDays) * 24 * time.Hour,
	}
	monitorSvc := services.NewMonitorService(monitorCfg, commandSvc, commandRepo, sampleRepo, hub, log)

	return &App{
		Cfg:        cfg,
		Hub:        hub,
		Commands:   commandSvc,
		Judge:      judgeSvc,
		Completion: completionSvc,
		Ingest:     ingestSvc,
		Monitor:    monitorSvc,
	}, nil
}
