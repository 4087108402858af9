// Package config loads application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"
)

// Server holds the HTTP listener settings.
type Server struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"3000"`
}

// Addr returns the listen address.
func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// Auth configures the operator JWT gate on the teller routes. Tokens are
// issued by the platform; this side only verifies them.
type Auth struct {
	JwtSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// Gateway configures the remote cambio platform API client.
type Gateway struct {
	BaseURL     string        `envconfig:"BASE_URL" required:"true"`
	APIToken    string        `envconfig:"API_TOKEN"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

// Storage selects the durable backend shared by the session snapshot and the
// persistent cache tier. Redis wins when an address is set; otherwise a local
// JSON file is used.
type Storage struct {
	FilePath      string `envconfig:"FILE_PATH" default:"data/cambio-store.json"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"cambio:"`
}

// Cache holds the per-domain TTLs. Rate data is volatile and expires fast;
// currency reference data barely changes.
type Cache struct {
	RatesTTL      time.Duration `envconfig:"RATES_TTL" default:"5m"`
	CurrenciesTTL time.Duration `envconfig:"CURRENCIES_TTL" default:"12h"`
	KeyPrefix     string        `envconfig:"KEY_PREFIX" default:"cache:"`
}

// Log configures the slog backend.
type Log struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"cambio"`
}

// App is the root configuration.
type App struct {
	Env     string  `envconfig:"ENV" default:"development"`
	Server  Server  `envconfig:"SERVER"`
	Auth    Auth    `envconfig:"AUTH"`
	Gateway Gateway `envconfig:"GATEWAY"`
	Storage Storage `envconfig:"STORAGE"`
	Cache   Cache   `envconfig:"CACHE"`
	Log     Log     `envconfig:"LOG"`
}
