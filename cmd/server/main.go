package main

import (
	"fmt"

	log "github.com/charmbracelet/log"

	"github.com/andinafx/cambio/infra/initializer"
	"github.com/andinafx/cambio/pkg/config"
	"github.com/andinafx/cambio/webapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	app := webapi.SetupApp(deps, cfg)

	deps.Logger.Info("starting server",
		"env", cfg.Env,
		"address", cfg.Server.Addr(),
	)
	return app.Listen(cfg.Server.Addr())
}
