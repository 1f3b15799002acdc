package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"time"

	"vendor-tracking/internal/shared/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envRef matches ${NAME} and ${NAME:-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfig reads a YAML config file, resolving ${VAR:-default} references
// against the environment. A .env file next to the working directory is loaded
// first when present.
func LoadConfig(filename string) (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return Parse(raw)
}

// Parse decodes raw YAML after environment expansion and fills defaults.
func Parse(raw []byte) (*models.Config, error) {
	expanded := envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		parts := envRef.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(parts[1])); ok {
			return []byte(v)
		}
		return parts[2]
	})

	cfg := &models.Config{}
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values with the service defaults.
func ApplyDefaults(cfg *models.Config) {
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "3010"
	}
	if cfg.Redis.SnapshotTTL <= 0 {
		cfg.Redis.SnapshotTTL = 10 * time.Minute
	}

	t := &cfg.Tracking
	if t.WindowSize < 3 {
		t.WindowSize = 5
	}
	if t.DefaultSpeedMps <= 0 {
		// 40 km/h
		t.DefaultSpeedMps = 40.0 / 3.6
	}
	if t.ArrivedRadiusM <= 0 {
		t.ArrivedRadiusM = 50
	}
	if t.MinSpeedMps <= 0 {
		t.MinSpeedMps = 0.5
	}
	if t.MaxETASeconds <= 0 {
		t.MaxETASeconds = 24 * 60 * 60
	}
	if t.SendBuffer <= 0 {
		t.SendBuffer = 64
	}
	if t.SinkBuffer <= 0 {
		t.SinkBuffer = 1024
	}
	if t.WSAuthTimeout <= 0 {
		t.WSAuthTimeout = 5 * time.Second
	}
}
