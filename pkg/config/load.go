package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment. Each envFilePath is tried
// in order; a missing .env file is fine, the system environment still
// applies.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()

	if len(envFilePath) == 0 {
		envFilePath = []string{".env"}
	}
	for _, path := range envFilePath {
		if err := godotenv.Load(path); err != nil {
			logger.Debug("no environment file", "path", path)
			continue
		}
		logger.Info("environment loaded from file", "path", path)
		break
	}

	var cfg App
	if err := envconfig.Process("CAMBIO", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
