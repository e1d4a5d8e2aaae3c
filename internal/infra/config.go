package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Loaded from yaml, then sensitive or
// deployment-specific values are overridden from environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Settlement struct {
		BaseURL    string `yaml:"base_url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"settlement"`

	Commission struct {
		FreeOperations int     `yaml:"free_operations"`
		RatePercent    float64 `yaml:"rate_percent"`
	} `yaml:"commission"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset commission settings with the stock tier
func (c *Config) applyDefaults() {
	if c.Commission.FreeOperations == 0 {
		c.Commission.FreeOperations = 5
	}
	if c.Commission.RatePercent == 0 {
		c.Commission.RatePercent = 0.7
	}
	if c.Settlement.TimeoutSec == 0 {
		c.Settlement.TimeoutSec = 10
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if !strings.HasPrefix(c.Settlement.BaseURL, "http://") && !strings.HasPrefix(c.Settlement.BaseURL, "https://") {
		return fmt.Errorf("invalid settlement base URL: %s", c.Settlement.BaseURL)
	}
	if c.Settlement.TimeoutSec <= 0 {
		return fmt.Errorf("settlement timeout must be positive")
	}
	if c.Commission.FreeOperations < 0 {
		return fmt.Errorf("free operations must not be negative")
	}
	if c.Commission.RatePercent < 0 {
		return fmt.Errorf("commission rate must not be negative")
	}
	return nil
}

// overrideWithEnv overrides settings from environment variables when present
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("EXCHANGE_SETTLEMENT_URL"); url != "" {
		cfg.Settlement.BaseURL = url
	}
	if addr := os.Getenv("EXCHANGE_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}
