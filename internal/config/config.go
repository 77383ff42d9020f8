// Package config loads estimator settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/contactkeval/option-premium/internal/data"
	"github.com/contactkeval/option-premium/internal/estimator"
	"github.com/contactkeval/option-premium/internal/expiry"
)

// Config struct
type Config struct {
	RiskFreeRate float64       `yaml:"risk_free_rate"` // annual, e.g. 0.01
	ExpiryHour   int           `yaml:"expiry_hour"`    // hour of day options expire, default 15
	Timezone     string        `yaml:"timezone"`       // IANA zone of the expiry hour
	Provider     string        `yaml:"provider"`       // "massive", "polygon" or "csv"
	APIKey       string        `yaml:"api_key,omitempty"`
	BaseURL      string        `yaml:"base_url,omitempty"`   // massive only
	ChainFile    string        `yaml:"chain_file,omitempty"` // csv only
	Timeout      time.Duration `yaml:"timeout"`
	Listen       string        `yaml:"listen"`    // REST listen address
	Verbosity    int           `yaml:"verbosity"` // 0=errors,1=info,2=debug,3=trace
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		RiskFreeRate: estimator.DefaultRiskFreeRate,
		ExpiryHour:   expiry.DefaultHour,
		Timezone:     "America/New_York",
		Provider:     data.KindMassive,
		Timeout:      30 * time.Second,
		Listen:       ":8080",
		Verbosity:    1,
	}
}

// Load reads .env (if present), then the YAML file at path (if path is not
// empty), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPTION_PREMIUM_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("OPTION_PREMIUM_LISTEN"); v != "" {
		c.Listen = v
	}
	if c.APIKey == "" {
		switch strings.ToLower(c.Provider) {
		case data.KindMassive:
			c.APIKey = firstNonEmpty(os.Getenv("MASSIVE_API_KEY"), os.Getenv("POLYGON_API_KEY"))
		case data.KindPolygon:
			c.APIKey = firstNonEmpty(os.Getenv("POLYGON_API_KEY"), os.Getenv("MASSIVE_API_KEY"))
		}
	}
}

// Validate rejects settings the estimator cannot run with. A missing API key
// is allowed: manual-volatility requests never reach the provider.
func (c Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case data.KindMassive, data.KindPolygon:
	case data.KindCSV:
		if c.ChainFile == "" {
			return fmt.Errorf("provider csv requires chain_file")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if math.IsNaN(c.RiskFreeRate) || math.Abs(c.RiskFreeRate) > 1 {
		return fmt.Errorf("risk_free_rate %v must be a finite annual rate between -1 and 1", c.RiskFreeRate)
	}
	if c.ExpiryHour < 0 || c.ExpiryHour > 23 {
		return fmt.Errorf("expiry_hour %d out of range", c.ExpiryHour)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Location resolves Timezone, defaulting to local time.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ProviderOptions maps the config onto data.Options.
func (c Config) ProviderOptions() data.Options {
	return data.Options{
		Kind:      c.Provider,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		ChainFile: c.ChainFile,
		Timeout:   c.Timeout,
		Rate:      c.RiskFreeRate,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
