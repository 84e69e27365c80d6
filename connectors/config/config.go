package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	dc "rebar-stats/domain/config"
)

// Path returns the config file location: CONFIG_PATH or ./config.yml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config.yml"
}

// Load reads .env (when present), parses the YAML configuration file at path
// on top of the built-in defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*dc.Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("config.env.loaded", "path", ".env")
	}

	c := dc.Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("config.defaults", "reason", "file not found", "path", path)
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		slog.Info(fmt.Sprintf("Loaded config: %s", path))
	}

	applyEnv(c)
	return c, nil
}

func applyEnv(c *dc.Config) {
	if v := os.Getenv("DATA_FILE"); v != "" {
		c.Source.Paths = append([]string{v}, c.Source.Paths...)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Status.DSN = v
	}
	if v := os.Getenv("NOTIFY_URL"); v != "" {
		c.Notify.URL = v
	}
	if v := os.Getenv("NOTIFY_TOKEN"); v != "" {
		c.Notify.Token = v
	}
	if v := os.Getenv("NOTIFY_CLIENT_SECRET"); v != "" {
		c.Notify.ClientSecret = v
	}
	c.Status.Store = strings.ToLower(strings.TrimSpace(c.Status.Store))
	if c.Status.Store == "" {
		c.Status.Store = "file"
		if c.Status.DSN != "" {
			c.Status.Store = "postgres"
		}
	}
}
