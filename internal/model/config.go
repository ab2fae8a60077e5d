// Package model defines shared configuration and wire structures used to
// initialize and run the telemetry services.
package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root structure loaded from the server's YAML config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Pull   PullConfig   `yaml:"pull"`
	Buoys  []string     `yaml:"buoys"`
}

// ServerConfig defines the feed server's listen address and local state.
type ServerConfig struct {
	Addr          string `yaml:"addr"`            // e.g. ":10200"
	StorePath     string `yaml:"store_path"`      // bbolt database path
	PollIntervalS int    `yaml:"poll_interval_s"` // seconds between SWIFT server polls
}

// PullConfig defines how messages are retrieved and decoded.
type PullConfig struct {
	BaseURL   string `yaml:"base_url"`   // SWIFT server base URL; empty selects the default
	Workers   int    `yaml:"workers"`    // decode concurrency; <1 selects one per CPU
	LookbackH int    `yaml:"lookback_h"` // hours of history each poll re-queries
}

// Load reads and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":10200"
	}
	if c.Server.StorePath == "" {
		c.Server.StorePath = "swift-messages.db"
	}
	if c.Server.PollIntervalS <= 0 {
		c.Server.PollIntervalS = 300
	}
	if c.Pull.LookbackH <= 0 {
		c.Pull.LookbackH = 48
	}
}

func (c *Config) validate() error {
	if len(c.Buoys) == 0 {
		return fmt.Errorf("no buoys configured")
	}
	for _, id := range c.Buoys {
		if id == "" {
			return fmt.Errorf("empty buoy id in buoys list")
		}
	}
	return nil
}
