package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig   `json:"strava"`
	Athlete  AthleteConfig  `json:"athlete"`
	Analysis AnalysisConfig `json:"analysis"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	FTPWatts float64 `json:"ftp_watts"`
}

// AnalysisConfig holds tuning knobs for the compliance engine. Zero values
// mean "use the engine defaults"; most athletes never set these.
type AnalysisConfig struct {
	AlignmentWindow  int     `json:"alignment_window,omitempty"`
	DownsampleFactor int     `json:"downsample_factor,omitempty"`
	DriftPenalty     float64 `json:"drift_penalty,omitempty"`
	DisableAnchors   bool    `json:"disable_anchors,omitempty"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			FTPWatts: 200,
		},
	}
}

// Load reads the configuration from ~/.veloscore/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Athlete.FTPWatts == 0 {
		cfg.Athlete.FTPWatts = DefaultConfig().Athlete.FTPWatts
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.veloscore/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Never overwrite an existing config
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	example := Config{
		Strava: StravaConfig{
			ClientID:     "YOUR_CLIENT_ID",
			ClientSecret: "YOUR_CLIENT_SECRET",
		},
		Athlete: AthleteConfig{
			FTPWatts: 200,
		},
	}

	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	if c.Athlete.FTPWatts <= 0 {
		return fmt.Errorf("athlete.ftp_watts must be positive, got %v", c.Athlete.FTPWatts)
	}
	if c.Athlete.FTPWatts < 50 || c.Athlete.FTPWatts > 600 {
		return fmt.Errorf("athlete.ftp_watts (%v) is outside the plausible 50-600 range", c.Athlete.FTPWatts)
	}

	if c.Analysis.AlignmentWindow < 0 {
		return fmt.Errorf("analysis.alignment_window must not be negative, got %d", c.Analysis.AlignmentWindow)
	}
	if c.Analysis.DownsampleFactor < 0 {
		return fmt.Errorf("analysis.downsample_factor must not be negative, got %d", c.Analysis.DownsampleFactor)
	}
	if c.Analysis.DriftPenalty < 0 {
		return fmt.Errorf("analysis.drift_penalty must not be negative, got %v", c.Analysis.DriftPenalty)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".veloscore", "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".veloscore"), nil
}
