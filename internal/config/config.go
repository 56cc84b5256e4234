// Package config loads server configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/mmynk/homestock/internal/models"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Prefs   PrefsConfig   `yaml:"prefs"`
	Auth    AuthConfig    `yaml:"auth"`
	Items   ItemsConfig   `yaml:"items"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
	// SessionIdleTTL drops device sessions not used for this long. Zero keeps them.
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl" validate:"gte=0"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver" validate:"oneof=sqlite firestore memory"`
	SQLitePath       string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	FirestoreProject string `yaml:"firestore_project" validate:"required_if=Driver firestore"`
	CredentialsFile  string `yaml:"credentials_file"`
}

type PrefsConfig struct {
	// Path of the SQLite file holding device-local values. Empty keeps them in memory.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	TokenSecret       string        `yaml:"token_secret" validate:"required,min=16"`
	TokenTTL          time.Duration `yaml:"token_ttl" validate:"gt=0"`
	RedirectGrace     time.Duration `yaml:"redirect_grace" validate:"gte=0"`
	RedirectMarkerTTL time.Duration `yaml:"redirect_marker_ttl" validate:"gte=0"`
}

type ItemsConfig struct {
	FetchRetries int `yaml:"fetch_retries" validate:"min=1,max=10"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8080, SessionIdleTTL: 24 * time.Hour},
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "./data/homestock.db"},
		Prefs:   PrefsConfig{Path: "./data/prefs.db"},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			RedirectGrace:     300 * time.Millisecond,
			RedirectMarkerTTL: 10 * time.Minute,
		},
		Items: ItemsConfig{FetchRetries: 3},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path (skipped when empty or missing), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := models.Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.SQLitePath, "DB_PATH")
	setString(&cfg.Storage.FirestoreProject, "FIRESTORE_PROJECT")
	setString(&cfg.Storage.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.Prefs.Path, "PREFS_PATH")
	setString(&cfg.Auth.TokenSecret, "TOKEN_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if err := setInt(&cfg.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Items.FetchRetries, "FETCH_RETRIES"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Server.SessionIdleTTL, "SESSION_IDLE_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Auth.RedirectGrace, "REDIRECT_GRACE"); err != nil {
		return err
	}
	return setDuration(&cfg.Auth.RedirectMarkerTTL, "REDIRECT_MARKER_TTL")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
