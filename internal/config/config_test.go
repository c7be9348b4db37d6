package config

import (
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.VendorID != "1050" {
		t.Errorf("default vendor = %q, want 1050", cfg.VendorID)
	}
	if len(cfg.ProductIDs) != 3 {
		t.Errorf("default products = %v, want three YubiKey ids", cfg.ProductIDs)
	}
	if cfg.GraceSeconds != 10 {
		t.Errorf("default grace = %d, want 10", cfg.GraceSeconds)
	}
	if cfg.PollIntervalSeconds != 1 {
		t.Errorf("default poll interval = %d, want 1", cfg.PollIntervalSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero grace", func(c *Config) { c.GraceSeconds = 0 }, true},
		{"negative grace", func(c *Config) { c.GraceSeconds = -5 }, true},
		{"zero poll interval", func(c *Config) { c.PollIntervalSeconds = 0 }, true},
		{"short vendor", func(c *Config) { c.VendorID = "105" }, true},
		{"no products", func(c *Config) { c.ProductIDs = nil }, true},
		{"bad product", func(c *Config) { c.ProductIDs = []string{"04"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCreatesAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	origDir, origFile := ConfigDir, ConfigFile
	ConfigDir = dir
	ConfigFile = filepath.Join(dir, "config.json")
	t.Cleanup(func() { ConfigDir, ConfigFile = origDir, origFile })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if cfg.GraceSeconds != 10 {
		t.Errorf("created config grace = %d, want default 10", cfg.GraceSeconds)
	}

	cfg.GraceSeconds = 30
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after save: %v", err)
	}
	if reloaded.GraceSeconds != 30 {
		t.Errorf("reloaded grace = %d, want 30", reloaded.GraceSeconds)
	}
}
