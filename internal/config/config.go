// Package config loads the YAML configuration shared by the CLI and the
// server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dofliu/InduSpect/internal/images"
	"github.com/dofliu/InduSpect/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Provider     string             `yaml:"provider"`
	Model        string             `yaml:"model"`
	ReportModel  string             `yaml:"report_model"`
	APIKey       string             `yaml:"api_key"`
	Store        StoreConfig        `yaml:"store"`
	Images       ImagesConfig       `yaml:"images"`
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Server       ServerConfig       `yaml:"server"`
	Log          logging.Config     `yaml:"log"`
}

// StoreConfig selects where session fields are persisted.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // file, postgres, memory
	Dir         string `yaml:"dir"`
	DatabaseURL string `yaml:"database_url"`
}

// ImagesConfig selects where photos are kept.
type ImagesConfig struct {
	Backend string             `yaml:"backend"` // file, minio, memory
	Dir     string             `yaml:"dir"`
	Minio   images.MinioConfig `yaml:"minio"`
}

// AnalysisConfig tunes dispatch to the analysis service.
type AnalysisConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	RatePerSec     float64       `yaml:"rate_per_sec"`
	Burst          int           `yaml:"burst"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// ConnectivityConfig selects the online/offline signal.
type ConnectivityConfig struct {
	Mode                string        `yaml:"mode"` // probe, online, offline
	ProbeAddr           string        `yaml:"probe_addr"`
	ProbeTimeoutSeconds int           `yaml:"probe_timeout_seconds"`
	ProbeTimeout        time.Duration `yaml:"-"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
)

// Load reads the configuration from path. A missing file yields the
// defaults. Environment variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INDUSPECT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("INDUSPECT_DATA_DIR"); v != "" {
		c.Store.Dir = filepath.Join(v, "session")
		c.Images.Dir = filepath.Join(v, "images")
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if c.APIKey == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			c.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGoogle
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = "gpt-4o"
		default:
			c.Model = "gemini-2.5-flash"
		}
	}
	if c.ReportModel == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.ReportModel = c.Model
		default:
			c.ReportModel = "gemini-2.5-pro"
		}
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = filepath.Join(".induspect", "session")
	}
	if c.Images.Backend == "" {
		c.Images.Backend = "file"
	}
	if c.Images.Dir == "" {
		c.Images.Dir = filepath.Join(".induspect", "images")
	}
	if c.Images.Minio.Bucket == "" {
		c.Images.Minio.Bucket = "induspect"
	}

	if c.Analysis.Concurrency <= 0 {
		c.Analysis.Concurrency = 4
	}
	if c.Analysis.RatePerSec <= 0 {
		c.Analysis.RatePerSec = 2
	}
	if c.Analysis.Burst <= 0 {
		c.Analysis.Burst = c.Analysis.Concurrency
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = 120
	}
	c.Analysis.Timeout = time.Duration(c.Analysis.TimeoutSeconds) * time.Second

	if c.Connectivity.Mode == "" {
		c.Connectivity.Mode = "probe"
	}
	if c.Connectivity.ProbeAddr == "" {
		c.Connectivity.ProbeAddr = "generativelanguage.googleapis.com:443"
		if c.Provider == ProviderOpenAI {
			c.Connectivity.ProbeAddr = "api.openai.com:443"
		}
	}
	if c.Connectivity.ProbeTimeoutSeconds <= 0 {
		c.Connectivity.ProbeTimeoutSeconds = 3
	}
	c.Connectivity.ProbeTimeout = time.Duration(c.Connectivity.ProbeTimeoutSeconds) * time.Second

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogle, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.Store.Backend {
	case "file", "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url (or DATABASE_URL) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Images.Backend {
	case "file", "memory":
	case "minio":
		if c.Images.Minio.Endpoint == "" {
			return fmt.Errorf("images.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown images backend %q", c.Images.Backend)
	}
	switch c.Connectivity.Mode {
	case "probe", "online", "offline":
	default:
		return fmt.Errorf("unknown connectivity mode %q", c.Connectivity.Mode)
	}
	return nil
}
