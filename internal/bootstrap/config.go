package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/corrigohq/corrigo/config"
)

// InitLogger sets up the default structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads configuration from the environment, optionally seeded from
// a .env file, and applies guardrails.
func LoadConfig() (*config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine; anything else is a real problem.
		if _, ok := err.(*os.PathError); !ok {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
	}

	cfg := &config.AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}
