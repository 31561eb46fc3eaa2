// Package config provides configuration management for the voice
// assistant session.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AssistantConfig tunes the session state machine
type AssistantConfig struct {
	QuietWindow     time.Duration `mapstructure:"quiet_window"`     // silence before an utterance finalizes
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`    // fixed delay before retrying transient capture errors
	NotificationTTL time.Duration `mapstructure:"notification_ttl"` // auto-hide delay for user-facing banners
	Language        string        `mapstructure:"language"`
}

// CaptureConfig configures the speech recognition engine
type CaptureConfig struct {
	EngineURL      string        `mapstructure:"engine_url"` // websocket streaming recognizer endpoint
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	SampleRate     int           `mapstructure:"sample_rate"`
	Channels       int           `mapstructure:"channels"`
	Encoding       string        `mapstructure:"encoding"`
	InterimResults bool          `mapstructure:"interim_results"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
}

// PlaybackConfig configures speech synthesis
type PlaybackConfig struct {
	Rate  float64 `mapstructure:"rate"`
	Pitch float64 `mapstructure:"pitch"`
}

// ClassifierConfig configures the remote intent classification service
type ClassifierConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			QuietWindow:     1500 * time.Millisecond,
			RetryBackoff:    1 * time.Second,
			NotificationTTL: 5 * time.Second,
			Language:        "en-US",
		},
		Capture: CaptureConfig{
			Model:          "nova-2",
			SampleRate:     16000,
			Channels:       1,
			Encoding:       "linear16",
			InterimResults: true,
			DialTimeout:    10 * time.Second,
		},
		Playback: PlaybackConfig{
			Rate:  1.0,
			Pitch: 1.0,
		},
		Classifier: ClassifierConfig{
			ServerURL: "http://localhost:8080",
			Timeout:   5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("VOICEASSIST")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("assistant", cfg.Assistant)
	viper.Set("capture", cfg.Capture)
	viper.Set("playback", cfg.Playback)
	viper.Set("classifier", cfg.Classifier)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".voiceassist"), nil
}
