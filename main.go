package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vantagecrm/guru/api"
	"github.com/vantagecrm/guru/assembler"
	"github.com/vantagecrm/guru/config"
	"github.com/vantagecrm/guru/dispatch"
	"github.com/vantagecrm/guru/gateway"
	"github.com/vantagecrm/guru/hub"
	"github.com/vantagecrm/guru/interactionlog"
	"github.com/vantagecrm/guru/ledger"
	"github.com/vantagecrm/guru/llm"
	"github.com/vantagecrm/guru/platform"
	"github.com/vantagecrm/guru/policy"
	"github.com/vantagecrm/guru/store"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting assistant gateway",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("platform_url", cfg.PlatformURL),
		zap.String("model", cfg.LLMModel))

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	// Initialize platform and model clients
	platformClient := platform.NewClient(cfg.PlatformURL, cfg.PlatformTimeout)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize quota policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Initialize push hub
	connectionHub := hub.NewHub(logger)

	// Initialize session registry
	registry := gateway.NewRegistry(gateway.Deps{
		Policy:    policyEngine,
		Store:     db,
		Ledger:    ledger.New(platformClient, db, logger),
		Assembler: assembler.New(db, logger),
		Dispatcher: dispatch.New(llmClient, dispatch.Settings{
			Model:          cfg.LLMModel,
			Temperature:    cfg.LLMTemperature,
			MaxTokens:      cfg.LLMMaxTokens,
			ContextByteCap: cfg.ContextByteCap,
			Timeout:        cfg.LLMTimeout,
		}, logger),
		Interactions: interactionlog.New(platformClient, db, logger),
		Publisher:    api.MessagePublisher{Hub: connectionHub},
		Logger:       logger,
	})

	// Initialize handler
	h := api.NewHandler(registry, connectionHub, logger)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("assistant gateway started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down assistant gateway")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("assistant gateway stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zapCfg.Build()
}
