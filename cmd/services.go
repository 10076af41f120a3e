package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/catalog"
	"github.com/anuragpy07/Sausico/config"
	"github.com/anuragpy07/Sausico/download"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/storage"
	"github.com/anuragpy07/Sausico/stream"
)

// services bundles the wired backend shared by every subcommand.
type services struct {
	cfg      *config.Config
	settings *cache.RedisStore
	store    *storage.MinioStore
	catalog  *catalog.Client
	resolver *stream.Resolver
	manager  *download.Manager
}

// buildServices loads configuration and connects the persistence and
// catalog backends. The resolver and the download manager reference each
// other, so the local source is attached after both exist.
func buildServices() (*services, error) {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxAge:     cfg.LogMaxAge,
	})

	settings, err := cache.NewRedisStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		settings.Close()
		return nil, fmt.Errorf("failed to connect to minio: %w", err)
	}

	cat := catalog.NewClient(cfg.CatalogAPIURL)
	resolver := stream.NewResolver(cat, settings, nil)
	manager := download.NewManager(store, settings, resolver, cfg.ExportDir)
	resolver.AttachLocalSource(manager)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := resolver.SeedActiveQuality(ctx, cfg.DefaultQuality); err != nil {
		logger.Warn("failed to seed quality setting", logger.ErrorField(err))
	}

	return &services{
		cfg:      cfg,
		settings: settings,
		store:    store,
		catalog:  cat,
		resolver: resolver,
		manager:  manager,
	}, nil
}

func (s *services) close() {
	if err := s.settings.Close(); err != nil {
		logger.Warn("failed to close redis connection", logger.ErrorField(err))
	}
}
