// SPDX-License-Identifier: MPL-2.0

// Package config resolves renutil's configuration. The registry root is
// an explicit value threaded into every component's constructor; nothing
// reads it ambiently.
//
// Precedence, highest first: command-line flag, RENUTIL_* environment
// variables, the optional config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for config paths and logging.
	AppName = "renutil"

	// envPrefix namespaces the environment variables (RENUTIL_REGISTRY, ...).
	envPrefix = "RENUTIL"
)

type (
	// Config is the resolved configuration.
	Config struct {
		// Registry is the absolute path of the registry root directory.
		Registry string `mapstructure:"registry"`
		// Verbose enables debug-level logging.
		Verbose bool `mapstructure:"verbose"`
	}

	// Overrides carries flag-level values that beat every other source.
	Overrides struct {
		Registry string
		Verbose  bool
	}
)

// DefaultRegistryRoot is ~/.renutil, the conventional location when
// nothing else is configured.
func DefaultRegistryRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// configDir returns the platform config directory holding the optional
// config file.
func configDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName), nil
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Load resolves the configuration from the file, environment, and the
// given flag overrides. The registry root is always returned absolute.
func Load(overrides Overrides) (*Config, error) {
	v := viper.New()

	defaultRoot, err := DefaultRegistryRoot()
	if err != nil {
		return nil, err
	}
	v.SetDefault("registry", defaultRoot)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if dir, dirErr := configDir(); dirErr == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if readErr := v.ReadInConfig(); readErr != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(readErr, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", readErr)
			}
			// No config file is the common case.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if overrides.Registry != "" {
		cfg.Registry = overrides.Registry
	}
	if overrides.Verbose {
		cfg.Verbose = true
	}

	abs, err := filepath.Abs(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("resolving registry root: %w", err)
	}
	cfg.Registry = abs

	return &cfg, nil
}
