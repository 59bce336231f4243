package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/pitchside/auctioneer/internal/models"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Role secrets. Spectators need no PIN.
	AdminPIN    string `env:"ADMIN_PIN" envDefault:"admin123"`
	Captain1PIN string `env:"CAPTAIN1_PIN" envDefault:"team1"`
	Captain2PIN string `env:"CAPTAIN2_PIN" envDefault:"team2"`

	// Optional NATS mirror for auction events; empty disables it.
	NATSURL string `env:"NATS_URL" envDefault:""`

	// Optional YAML file overriding auction settings.
	SettingsFile string `env:"SETTINGS_FILE" envDefault:""`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &cfg, nil
}

// Settings are the auction tunables, adjustable per deployment without
// touching the environment.
type Settings struct {
	// TimerSeconds is the bidding window per lot.
	TimerSeconds int `yaml:"timer_seconds"`
	// BidStep is the minimum increment over the current bid.
	BidStep int64 `yaml:"bid_step"`
	// DefaultBalance seeds both captain purses on start and restart.
	DefaultBalance int64 `yaml:"default_balance"`
	// EndPolicy decides whether unsold lots requeue into further rounds.
	EndPolicy models.EndPolicy `yaml:"end_policy"`
}

// DefaultSettings mirror the original deployment defaults.
func DefaultSettings() Settings {
	return Settings{
		TimerSeconds:   60,
		BidStep:        1,
		DefaultBalance: 1_000_000,
		EndPolicy:      models.EndPolicyRequeueUnsold,
	}
}

// LoadSettings reads a YAML settings file over the defaults. An empty
// path returns the defaults unchanged.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parse settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Validate rejects settings no auction could run under.
func (s Settings) Validate() error {
	if s.TimerSeconds < 1 {
		return fmt.Errorf("timer_seconds must be >= 1, got %d", s.TimerSeconds)
	}
	if s.BidStep < 1 {
		return fmt.Errorf("bid_step must be >= 1, got %d", s.BidStep)
	}
	if s.DefaultBalance < 0 {
		return fmt.Errorf("default_balance must be >= 0, got %d", s.DefaultBalance)
	}
	switch s.EndPolicy {
	case models.EndPolicyRequeueUnsold, models.EndPolicySinglePass:
	default:
		return fmt.Errorf("unknown end_policy %q", s.EndPolicy)
	}
	return nil
}
