package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/anzen-ai/anzen/internal/api"
	"github.com/anzen-ai/anzen/internal/audit"
	"github.com/anzen-ai/anzen/internal/auditstore"
	"github.com/anzen-ai/anzen/internal/auth"
	"github.com/anzen-ai/anzen/internal/config"
	"github.com/anzen-ai/anzen/internal/pipeline"
	"github.com/anzen-ai/anzen/internal/store"
)

func main() {
	configPath := flag.String("config", "anzen.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := mustBuildLogger(cfg.Logging.Level)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting anzen gateway",
		zap.String("addr", cfg.Server.Addr),
		zap.String("log_level", cfg.Logging.Level),
	)

	// Postgres (required: accounts and API keys live here)
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn (POSTGRES_DSN) is required")
	}
	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}
	pgStore := store.NewStore(db)
	logger.Info("postgres connected")

	// Audit store — ClickHouse in production, embedded bolt otherwise
	var auditStore audit.Store
	if cfg.ClickHouse.DSN != "" {
		chStore, err := auditstore.OpenClickHouse(cfg.ClickHouse.DSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to bolt store",
				zap.Error(err),
			)
		} else {
			auditStore = chStore
			logger.Info("clickhouse audit store connected")
		}
	}
	if auditStore == nil {
		boltStore, err := auditstore.OpenBolt(cfg.Audit.BoltPath)
		if err != nil {
			logger.Fatal("failed to open bolt audit store", zap.Error(err))
		}
		auditStore = boltStore
		logger.Info("bolt audit store opened", zap.String("path", cfg.Audit.BoltPath))
	}
	defer func() { _ = auditStore.Close() }()

	trail := audit.NewTrail(auditStore, logger)
	defer trail.Close()

	// Pipeline — the pattern recognizer compiles its catalogue at init,
	// so a malformed pattern can never surface mid-request.
	pipe := pipeline.New(
		pipeline.NewPatternRecognizer(),
		pipeline.NewAnonymizer(logger),
		trail,
		logger,
	)

	deps := &api.Dependencies{
		Store:    pgStore,
		Pipeline: pipe,
		Trail:    trail,
		KeyAuth:  auth.NewKeyAuthenticator(pgStore, cfg.Auth.KeyCacheTTL(), logger),
		JWT:      auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		Logger:   logger,
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("anzen gateway stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
