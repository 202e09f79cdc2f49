package config

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Athlete.FTPWatts != 200 {
		t.Errorf("Athlete.FTPWatts = %v, want 200", cfg.Athlete.FTPWatts)
	}

	// Strava config should be empty by default
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	if cfg.Strava.ClientSecret != "" {
		t.Errorf("Strava.ClientSecret should be empty, got %q", cfg.Strava.ClientSecret)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Strava:  StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"},
		Athlete: AthleteConfig{FTPWatts: 250},
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errContains string
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty client ID",
			mutate:      func(c *Config) { c.Strava.ClientID = "" },
			expectError: true,
			errContains: "client_id",
		},
		{
			name:        "placeholder client ID",
			mutate:      func(c *Config) { c.Strava.ClientID = "YOUR_CLIENT_ID" },
			expectError: true,
			errContains: "client_id",
		},
		{
			name:        "empty client secret",
			mutate:      func(c *Config) { c.Strava.ClientSecret = "" },
			expectError: true,
			errContains: "client_secret",
		},
		{
			name:        "zero FTP",
			mutate:      func(c *Config) { c.Athlete.FTPWatts = 0 },
			expectError: true,
			errContains: "ftp_watts",
		},
		{
			name:        "implausible FTP",
			mutate:      func(c *Config) { c.Athlete.FTPWatts = 900 },
			expectError: true,
			errContains: "50-600",
		},
		{
			name:        "negative alignment window",
			mutate:      func(c *Config) { c.Analysis.AlignmentWindow = -1 },
			expectError: true,
			errContains: "alignment_window",
		},
		{
			name:        "negative drift penalty",
			mutate:      func(c *Config) { c.Analysis.DriftPenalty = -0.5 },
			expectError: true,
			errContains: "drift_penalty",
		},
		{
			name: "tuning overrides accepted",
			mutate: func(c *Config) {
				c.Analysis.AlignmentWindow = 60
				c.Analysis.DownsampleFactor = 10
				c.Analysis.DriftPenalty = 0.1
				c.Analysis.DisableAnchors = true
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not mention %q", err, tt.errContains)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
