package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/planforge/planforge/internal/adapter"
	"github.com/planforge/planforge/internal/adapter/adobe"
	"github.com/planforge/planforge/internal/adapter/enterprise"
	"github.com/planforge/planforge/internal/adapter/mparticle"
	"github.com/planforge/planforge/internal/adapter/segment"
	"github.com/planforge/planforge/internal/adapter/tealium"
	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/generator"
	"github.com/planforge/planforge/internal/notify"
	"github.com/planforge/planforge/internal/server"
	"github.com/planforge/planforge/internal/storage"
	"github.com/planforge/planforge/internal/storage/memory"
	"github.com/planforge/planforge/internal/storage/sqlite"
	"github.com/planforge/planforge/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdown, err := telemetry.InitTracer("planforge", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("PLANFORGE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	specs, integrations, closeStore, err := openStores(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStore()

	registry := adapter.NewRegistry()
	registry.Register(segment.New())
	registry.Register(segment.NewLegacy())
	registry.Register(tealium.New(cfg.Adapters.Tealium.Account, cfg.Adapters.Tealium.Profile))
	registry.Register(mparticle.New())
	registry.Register(adobe.New(cfg.Adapters.Adobe.OrgID))
	registry.Register(enterprise.New())

	gen := generator.New(cfg.Generator.APIKey, cfg.Generator.Model,
		generator.WithBaseURL(cfg.Generator.BaseURL),
		generator.WithLogger(logger),
	)

	dispatcher := notify.NewDispatcher(integrations, logger)
	handler := server.NewHandler(specs, integrations, gen, registry, dispatcher, logger)

	srv := server.New(cfg.Server.Port, logger)
	handler.Routes(srv.Router)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func openStores(cfg *config.Config, logger *slog.Logger) (storage.SpecStore, storage.IntegrationStore, func(), error) {
	switch cfg.Storage.Type {
	case "sqlite":
		store, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("using sqlite storage", slog.String("path", cfg.Storage.SQLite.Path))
		return store, store, func() { store.Close() }, nil
	default:
		store := memory.New()
		logger.Info("using in-memory storage")
		return store, store, func() {}, nil
	}
}
