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
	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/api"
	"github.com/nidhogg/skillbook/internal/config"
	"github.com/nidhogg/skillbook/internal/events"
	"github.com/nidhogg/skillbook/internal/graph"
	"github.com/nidhogg/skillbook/internal/locale"
	"github.com/nidhogg/skillbook/internal/service"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/skillbook.json"
	}
	cfg, cfgErr := config.Load(cfgPath)

	logger := newLogger(cfg)
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(cfgErr))
	}
	logger.Info("Starting Skillbook...", zap.String("config", cfgPath))

	if err := skill.Migrations.Verify(); err != nil {
		logger.Fatal("schema migration chain is incomplete", zap.Error(err))
	}
	if err := locale.SetSupported(cfg.Content.SupportedLanguages); err != nil {
		logger.Fatal("invalid content languages", zap.Error(err))
	}

	ctx := context.Background()

	// PostgreSQL is the system of record
	pgStore, err := store.New(ctx, cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := pgStore.Migrate(ctx, cfg.Database.Postgres.MigrationsDir); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	svc := service.New(pgStore, logger)
	handler := api.NewHandler(svc, logger)
	handler.AddHealthCheck("postgres", pgStore)

	// Optional prerequisite graph
	var prereqGraph *graph.PrerequisiteGraph
	if cfg.Database.Neo4j.URI != "" {
		g, gErr := graph.New(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gErr == nil {
			gErr = g.EnsureConstraints(ctx)
		}
		if gErr != nil {
			logger.Warn("Neo4j unavailable, running without prerequisite graph", zap.Error(gErr))
		} else {
			prereqGraph = g
			svc.SetGraph(g)
			handler.AddHealthCheck("neo4j", g)
		}
	}

	// Optional commit events
	var bus *events.Bus
	if cfg.Database.Redis.URL != "" {
		b, bErr := events.NewBus(ctx, cfg.Database.Redis.URL, cfg.Database.Redis.StreamMaxLen, logger)
		if bErr != nil {
			logger.Warn("Redis unavailable, running without commit events", zap.Error(bErr))
		} else {
			bus = b
			svc.SetPublisher(b)
			handler.AddHealthCheck("redis", b)
		}
	}

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Skillbook listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Skillbook...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if prereqGraph != nil {
		prereqGraph.Close(shutdownCtx)
	}
	if bus != nil {
		bus.Close()
	}
	pgStore.Close()
}

// newLogger builds a development logger at the configured level. A nil
// config gets the default level so config errors can still be logged.
func newLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if cfg != nil {
		if lvl, err := zap.ParseAtomicLevel(cfg.Server.LogLevel); err == nil {
			zcfg.Level = lvl
		}
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}
