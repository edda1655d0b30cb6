package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv reads IRCTERM_* variables. A nil environ reads the process
// environment.
func parseEnv(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}
