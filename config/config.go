// Package config loads ircterm settings from defaults, a TOML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"dario.cat/mergo"
)

// EnvPrefix prefixes every environment variable ircterm reads.
const EnvPrefix = "IRCTERM_"

var (
	ErrMissingHost         = errors.New("no host given")
	ErrInvalidPort         = errors.New("port must be a number between 1 and 65535")
	ErrInvalidDrainTimeout = errors.New("drain timeout must be positive")
	ErrInvalidSendRate     = errors.New("send rate must not be negative")
)

// Config is the merged client configuration.
//
// Layers only fill fields that are still zero, so a boolean set to true in a
// lower layer cannot be switched off by a higher one.
type Config struct {
	Host string `toml:"host" env:"HOST"`
	// Port is left empty to pick the default for the transport.
	Port     string `toml:"port" env:"PORT"`
	TLS      bool   `toml:"tls" env:"TLS"`
	NoVerify bool   `toml:"noverify" env:"NOVERIFY"`
	// Cert is a PEM file holding a client certificate and its key.
	Cert string `toml:"cert" env:"CERT"`

	// TrafficLog receives raw protocol lines when set.
	TrafficLog string `toml:"log" env:"LOG"`
	NoPing     bool   `toml:"noping" env:"NOPING"`
	Simple     bool   `toml:"simple" env:"SIMPLE"`

	DrainTimeout time.Duration `toml:"drain_timeout" env:"DRAIN_TIMEOUT"`
	SendRate     float64       `toml:"send_rate" env:"SEND_RATE"`
	SendBurst    int           `toml:"send_burst" env:"SEND_BURST"`

	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `toml:"log_file" env:"LOG_FILE"`
	Debug    bool   `toml:"debug" env:"DEBUG"`

	// File is the config file to read. Empty means the default location,
	// which may be absent.
	File string `toml:"-" env:"CONFIG"`
}

// Defaults returns the lowest configuration layer.
func Defaults() Config {
	return Config{
		DrainTimeout: 5 * time.Second,
		SendBurst:    4,
		LogLevel:     "info",
		LogFile:      filepath.Join(Dir(), "ircterm.log"),
	}
}

// Dir returns the ircterm configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "ircterm")
}

// DefaultFile returns the path to config.toml
func DefaultFile() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load merges flags over the environment over the config file over
// Defaults, then validates the result.
func Load(flags Config) (Config, error) {
	envCfg, err := parseEnv(nil)
	if err != nil {
		return Config{}, err
	}

	path, required := flags.File, true
	if path == "" {
		path = envCfg.File
	}
	if path == "" {
		path, required = DefaultFile(), false
	}

	fileCfg, err := parseFile(path, required)
	if err != nil {
		return Config{}, err
	}

	cfg, err := merge(flags, envCfg, fileCfg, Defaults())
	if err != nil {
		return Config{}, err
	}
	cfg.File = path
	return cfg, cfg.Validate()
}

// merge combines layers from highest to lowest precedence.
func merge(layers ...Config) (Config, error) {
	var cfg Config
	for _, layer := range layers {
		if err := mergo.Merge(&cfg, layer); err != nil {
			return Config{}, fmt.Errorf("merging config: %w", err)
		}
	}
	return cfg, nil
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, ErrMissingHost)
	}
	if c.Port != "" {
		if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPort, c.Port))
		}
	}
	if c.DrainTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidDrainTimeout, c.DrainTimeout))
	}
	if c.SendRate < 0 {
		errs = append(errs, ErrInvalidSendRate)
	}
	return errors.Join(errs...)
}
