package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
)

// EnvPrefix prefixes every environment override, e.g. FITSTATE_ADMIN_ADDR.
const EnvPrefix = "FITSTATE_"

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads each present .env file from the working directory.
// Variables already set in the process environment are never overridden.
func loadEnvFiles() error {
	for _, name := range envFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return derrors.ConfigError("failed to load env file").
				WithCause(err).
				WithContext("file", name).
				Build()
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return derrors.ConfigError("invalid environment override").WithCause(err).Build()
	}
	return nil
}
