package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"go-harmony/melody"
)

// GameConfig is how the game reaches the engine.
type GameConfig struct {
	Listen    string `yaml:"listen"`
	WebSocket string `yaml:"websocket,omitempty"` // enables the WebSocket transport instead of TCP
}

// OutputConfig defines the synth MIDI output.
type OutputConfig struct {
	Port string `yaml:"port,omitempty"` // substring of the port name, empty for the first port
	Kit  string `yaml:"kit,omitempty"`
}

// KeyboardConfig is the controller `harmony record` listens to.
type KeyboardConfig struct {
	Port string `yaml:"port,omitempty"`
}

// MusicConfig seeds the engine. Values from the rules file win where both
// set something.
type MusicConfig struct {
	Rules             string  `yaml:"rules"`
	Main              string  `yaml:"main,omitempty"`
	AutoMarkov        bool    `yaml:"auto_markov"`
	MarkovOrder       int     `yaml:"markov_order,omitempty"`
	Seed              uint64  `yaml:"seed,omitempty"` // 0 picks a random seed
	DownbeatTolerance float64 `yaml:"downbeat_tolerance_ms"`
	StartDelayMs      int     `yaml:"start_delay_ms"`
}

// CacheConfig stores order searches between runs.
type CacheConfig struct {
	Dir      string `yaml:"dir,omitempty"` // defaults to <config dir>/cache
	Disabled bool   `yaml:"disabled,omitempty"`
}

// DebugConfig sends logs to a file.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogFile string `yaml:"log_file,omitempty"` // defaults to <config dir>/debug.log
}

// Config is the main configuration structure
type Config struct {
	Game     GameConfig     `yaml:"game"`
	Output   OutputConfig   `yaml:"output"`
	Keyboard KeyboardConfig `yaml:"keyboard,omitempty"`
	Music    MusicConfig    `yaml:"music"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Debug    DebugConfig    `yaml:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Game:   GameConfig{Listen: "127.0.0.1:5555"},
		Output: OutputConfig{Kit: "gm"},
		Music: MusicConfig{
			Rules:             "rules.yaml",
			AutoMarkov:        true,
			DownbeatTolerance: melody.DefaultDownbeatTolerance,
			StartDelayMs:      150,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-harmony"), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or the default path when path is empty.
// A missing file gives the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, or the default path when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// StartDelay is the pause before the first measure.
func (c *Config) StartDelay() time.Duration {
	if c.Music.StartDelayMs < 0 {
		return 0
	}
	return time.Duration(c.Music.StartDelayMs) * time.Millisecond
}

// CacheDir is where the order cache lives.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

// LogFile is where debug logs go.
func (c *Config) LogFile() (string, error) {
	if c.Debug.LogFile != "" {
		return c.Debug.LogFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}
