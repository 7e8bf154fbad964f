package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mp3nema/mp3parser"
)

// Config represents the mp3nema configuration
type Config struct {
	GuardFrames int     `yaml:"guard_frames"`
	MediaExt    string  `yaml:"media_ext"`
	OutputDir   string  `yaml:"output_dir"`
	Scan        Scan    `yaml:"scan"`
	Stream      Stream  `yaml:"stream"`
	Server      Server  `yaml:"server"`
	Logging     Logging `yaml:"logging"`
}

// Scan tunes frame extraction
type Scan struct {
	MaxFrameRetries int `yaml:"max_frame_retries"`
}

// Stream contains live stream settings
type Stream struct {
	ReadUnit        int           `yaml:"read_unit"`
	WindowUnits     int           `yaml:"window_units"`
	RedirectTimeout time.Duration `yaml:"redirect_timeout"`
	IgnoreFirstOOB  bool          `yaml:"ignore_first_oob"`
}

// Server contains HTTP API settings
type Server struct {
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// Logging contains logging configuration
type Logging struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		GuardFrames: 2,
		MediaExt:    ".mp3",
		OutputDir:   ".",
		Scan: Scan{
			MaxFrameRetries: mp3parser.DefaultMaxRetries,
		},
		Stream: Stream{
			ReadUnit:        512,
			WindowUnits:     8,
			RedirectTimeout: 3 * time.Second,
		},
		Server: Server{
			Port:         8080,
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Validate rejects settings the scanner cannot work with.
func (c *Config) Validate() error {
	if c.GuardFrames < 0 {
		return fmt.Errorf("guard_frames must not be negative: %d", c.GuardFrames)
	}
	if c.Stream.ReadUnit < 1 {
		return fmt.Errorf("stream.read_unit must be positive: %d", c.Stream.ReadUnit)
	}
	if c.Stream.WindowUnits < 2 {
		return fmt.Errorf("stream.window_units must be at least 2: %d", c.Stream.WindowUnits)
	}
	if c.MediaExt == "" {
		return fmt.Errorf("media_ext must not be empty")
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// LoadOrDefault loads configPath when it exists and falls back to defaults.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" || !ConfigExists(configPath) {
		return DefaultConfig(), nil
	}
	return LoadConfig(configPath)
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./mp3nema.yaml"
	}
	return filepath.Join(homeDir, ".config", "mp3nema", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
