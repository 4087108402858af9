// Package initializer wires the application dependencies from config.
package initializer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/andinafx/cambio/pkg/cache"
	"github.com/andinafx/cambio/pkg/clock"
	"github.com/andinafx/cambio/pkg/config"
	"github.com/andinafx/cambio/pkg/domain"
	"github.com/andinafx/cambio/pkg/gateway"
	"github.com/andinafx/cambio/pkg/service/teller"
	"github.com/andinafx/cambio/pkg/session"
	"github.com/andinafx/cambio/pkg/storage"
)

// Deps is the assembled dependency graph.
type Deps struct {
	Logger     *slog.Logger
	Backend    storage.Backend
	Gateway    *gateway.Client
	Sessions   *session.Manager
	Rates      *cache.Store[[]domain.ExchangeRate]
	Currencies *cache.Store[[]domain.Currency]
	Teller     *teller.Service
}

// InitializeDependencies builds everything the server needs and restores a
// persisted window session, if any.
func InitializeDependencies(cfg *config.App) (*Deps, error) {
	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	backend, err := buildBackend(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize storage backend: %w", err)
	}

	gw := gateway.New(gateway.Config{
		BaseURL:  cfg.Gateway.BaseURL,
		APIToken: cfg.Gateway.APIToken,
		Timeout:  cfg.Gateway.HTTPTimeout,
	}, logger)

	clk := clock.New()
	sessions := session.NewManager(gw, backend, clk, logger)
	restored := sessions.Restore(context.Background())
	if restored.Active() {
		logger.Info("restored teller window session",
			"window_id", restored.WindowID, "status", string(restored.Status))
	}

	rates := cache.New[[]domain.ExchangeRate](
		backend, cfg.Cache.KeyPrefix, cfg.Cache.RatesTTL, logger)
	currencies := cache.New[[]domain.Currency](
		backend, cfg.Cache.KeyPrefix, cfg.Cache.CurrenciesTTL, logger)

	tellerSvc := teller.New(sessions, gw, rates, currencies, teller.TTLs{
		Rates:      cfg.Cache.RatesTTL,
		Currencies: cfg.Cache.CurrenciesTTL,
	}, logger)

	return &Deps{
		Logger:     logger,
		Backend:    backend,
		Gateway:    gw,
		Sessions:   sessions,
		Rates:      rates,
		Currencies: currencies,
		Teller:     tellerSvc,
	}, nil
}

// buildBackend picks redis when an address is configured, otherwise a local
// JSON file store.
func buildBackend(cfg *config.App, logger *slog.Logger) (storage.Backend, error) {
	if cfg.Storage.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		logger.Info("using redis storage backend", "addr", cfg.Storage.RedisAddr)
		return storage.NewRedisStore(client, cfg.Storage.RedisPrefix, logger), nil
	}
	logger.Info("using file storage backend", "path", cfg.Storage.FilePath)
	return storage.NewFileStore(cfg.Storage.FilePath, logger)
}
