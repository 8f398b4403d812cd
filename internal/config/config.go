// Package config loads service configuration from an optional TOML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/finpulse/backend/internal/engine"
)

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Engine  EngineConfig  `toml:"engine"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	UseMemoryStore bool   `toml:"use_memory_store"`
	ProjectID      string `toml:"project_id"`
}

// EngineConfig mirrors the engine tunables in file-friendly types.
type EngineConfig struct {
	MerchantWeight         int     `toml:"merchant_weight"`
	AmountWeight           int     `toml:"amount_weight"`
	DateWeight             int     `toml:"date_weight"`
	DateDecayPerDay        int     `toml:"date_decay_per_day"`
	DateProximityDays      int     `toml:"date_proximity_days"`
	MinMatchScore          int     `toml:"min_match_score"`
	AmountTolerancePercent float64 `toml:"amount_tolerance_percent"`
	AdvanceThresholdDays   int     `toml:"advance_threshold_days"`
	DueSoonWindowDays      int     `toml:"due_soon_window_days"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	ec := engine.DefaultConfig()
	tolerance, _ := ec.AmountTolerancePercent.Float64()
	return &Config{
		Server: ServerConfig{
			Port:           "8111",
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{},
		Engine: EngineConfig{
			MerchantWeight:         ec.MerchantWeight,
			AmountWeight:           ec.AmountWeight,
			DateWeight:             ec.DateWeight,
			DateDecayPerDay:        ec.DateDecayPerDay,
			DateProximityDays:      ec.DateProximityDays,
			MinMatchScore:          ec.MinMatchScore,
			AmountTolerancePercent: tolerance,
			AdvanceThresholdDays:   ec.AdvanceThresholdDays,
			DueSoonWindowDays:      ec.DueSoonWindowDays,
		},
	}
}

// Load reads configuration from path (optional; empty path loads defaults)
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.EngineConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local" {
		c.Storage.UseMemoryStore = true
	}
	if projectID := os.Getenv("GOOGLE_CLOUD_PROJECT"); projectID != "" {
		c.Storage.ProjectID = projectID
	}
}

// EngineConfig converts the file representation into the engine's
// configuration type.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		MerchantWeight:         c.Engine.MerchantWeight,
		AmountWeight:           c.Engine.AmountWeight,
		DateWeight:             c.Engine.DateWeight,
		DateDecayPerDay:        c.Engine.DateDecayPerDay,
		DateProximityDays:      c.Engine.DateProximityDays,
		MinMatchScore:          c.Engine.MinMatchScore,
		AmountTolerancePercent: decimal.NewFromFloat(c.Engine.AmountTolerancePercent),
		AdvanceThresholdDays:   c.Engine.AdvanceThresholdDays,
		DueSoonWindowDays:      c.Engine.DueSoonWindowDays,
	}
}
