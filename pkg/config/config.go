// Package config loads the application configuration from a YAML file,
// applies environment overrides for secrets, and validates the result.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/confpilot/confpilot/pkg/hcm"
	"github.com/confpilot/confpilot/pkg/telemetry"
)

// Environment variables that override file-based settings. Secrets are
// only ever read from the environment, never from the config file.
const (
	EnvHCMSecret     = "CONFPILOT_HCM_SECRET"
	EnvAdvisorAPIKey = "CONFPILOT_ADVISOR_API_KEY"
	EnvDatabasePath  = "CONFPILOT_DATABASE_PATH"
)

// StorageConfig locates the metadata database and the blob root.
type StorageConfig struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path" validate:"required"`

	// BlobRoot is the directory where uploaded workbook bytes live.
	BlobRoot string `yaml:"blob_root" validate:"required"`
}

// ConnectionConfig identifies the remote HCM tenant. The secret comes
// from the environment.
type ConnectionConfig struct {
	CompanyID   string `yaml:"company_id"`
	Username    string `yaml:"username"`
	Application string `yaml:"application"`
	Secret      string `yaml:"-"`
}

// AdvisorConfig configures the optional recommendation collaborator.
type AdvisorConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

// ExecutorConfig tunes implementation dispatch.
type ExecutorConfig struct {
	Workers     int           `yaml:"workers" validate:"gte=0,lte=64"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// WatchConfig configures the inbox auto-ingest command.
type WatchConfig struct {
	// Dir is the default inbox directory for `confpilot watch`.
	Dir string `yaml:"dir"`
}

// Config is the root application configuration.
type Config struct {
	Storage    StorageConfig     `yaml:"storage"`
	HCM        hcm.Config        `yaml:"hcm"`
	Connection ConnectionConfig  `yaml:"connection"`
	Advisor    AdvisorConfig     `yaml:"advisor"`
	Executor   ExecutorConfig    `yaml:"executor"`
	Watch      WatchConfig       `yaml:"watch"`
	Telemetry  *telemetry.Config `yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: "confpilot.db",
			BlobRoot:     "blobs",
		},
		HCM: hcm.Config{
			BaseURL:    "https://api.successfactors.com",
			APIVersion: "v2",
		},
		Executor: ExecutorConfig{
			Workers:     4,
			ItemTimeout: 30 * time.Second,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads the file at path on top of the defaults. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHCMSecret); v != "" {
		c.Connection.Secret = v
	}
	if v := os.Getenv(EnvAdvisorAPIKey); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Storage.DatabasePath = v
	}
}

// Validate checks structural constraints and the nested telemetry config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return err
		}
	}
	return nil
}
