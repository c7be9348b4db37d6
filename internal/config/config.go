package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the daemon's settings, stored as JSON under /etc.
type Config struct {
	VendorID            string   `json:"vendor_id"`
	ProductIDs          []string `json:"product_ids"`
	GraceSeconds        int      `json:"grace_seconds"`
	PollIntervalSeconds int      `json:"poll_interval_seconds"`
	Notifications       bool     `json:"notifications"`
	HistoryDB           string   `json:"history_db"`
}

var (
	ConfigDir  = "/etc/tokenlock"
	ConfigFile = filepath.Join(ConfigDir, "config.json")
)

// Default returns the stock configuration: Yubico vendor id, the supported
// YubiKey product ids, a 10 second grace period and 1 second polling.
func Default() *Config {
	return &Config{
		VendorID:            "1050",
		ProductIDs:          []string{"0402", "0405", "0407"},
		GraceSeconds:        10,
		PollIntervalSeconds: 1,
		Notifications:       true,
		HistoryDB:           "/var/lib/tokenlock/history.db",
	}
}

// Load reads the config file, creating it with defaults when missing.
// A corrupted file is replaced with defaults rather than failing startup.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigFile)
	if os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		fmt.Println("Warning: config file corrupted, restoring defaults")
		cfg = Default()
		return cfg, cfg.Save()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config file, root readable only.
func (c *Config) Save() error {
	if err := os.MkdirAll(ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(ConfigFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the monitor cannot run with.
func (c *Config) Validate() error {
	if c.GraceSeconds <= 0 {
		return fmt.Errorf("grace_seconds must be a positive number of seconds, got %d", c.GraceSeconds)
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %d", c.PollIntervalSeconds)
	}
	if len(c.VendorID) != 4 {
		return fmt.Errorf("vendor_id must be a 4-hex-digit string, got %q", c.VendorID)
	}
	if len(c.ProductIDs) == 0 {
		return fmt.Errorf("at least one product_id is required")
	}
	for _, p := range c.ProductIDs {
		if len(p) != 4 {
			return fmt.Errorf("product_id must be a 4-hex-digit string, got %q", p)
		}
	}
	return nil
}
