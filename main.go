package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"github.com/1cbyc/SyntheticQuantEngine/config"
	"github.com/1cbyc/SyntheticQuantEngine/internal/adapters/binanceclient"
	"github.com/1cbyc/SyntheticQuantEngine/internal/adapters/logger"
	"github.com/1cbyc/SyntheticQuantEngine/internal/adapters/sqlite"
	"github.com/1cbyc/SyntheticQuantEngine/internal/app"
	"github.com/1cbyc/SyntheticQuantEngine/internal/execution"
	"github.com/1cbyc/SyntheticQuantEngine/internal/ports"
	"github.com/1cbyc/SyntheticQuantEngine/internal/risk"
	"github.com/1cbyc/SyntheticQuantEngine/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize JSON logger: %v", err)
		}
		defer zl.Sync()
		appLogger = zl
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize CSV audit mirror
	audit, err := utils.NewFillAudit(cfg.AuditLogPath)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize fill audit log")
		log.Fatalf("FATAL: Failed to initialize fill audit log: %v", err)
	}

	// 5. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	// 6. Initialize Executor
	var executor ports.Executor
	if cfg.PaperMode {
		executor, err = execution.NewPaper(cfg.StartingEquity, appLogger)
	} else {
		executor, err = execution.NewLive(binanceClient, appLogger)
	}
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize executor")
		log.Fatalf("FATAL: Failed to initialize executor: %v", err)
	}
	appLogger.Info(context.Background(), "Executor initialized", map[string]interface{}{"paperMode": cfg.PaperMode})

	// 7. Initialize Risk Manager
	riskMgr, err := risk.NewManager(risk.Limits{
		MaxDailyLoss:         cfg.MaxDailyLoss,
		MaxDailyProfit:       cfg.MaxDailyProfit,
		MaxOpenPositions:     cfg.MaxOpenPositions,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		TrailingStopDistance: cfg.TrailingStopDistance,
		TakeProfitDistance:   cfg.TakeProfitDistance,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	// 8. Initialize Application Service
	tradingService, err := app.NewTradingService(
		cfg,
		appLogger,
		binanceClient,
		executor,
		repo,
		repo,
		riskMgr,
		repo,  // DB audit log
		audit, // CSV mirror
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	// 9. Start the Service
	if err := tradingService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
