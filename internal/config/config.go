// Package config loads the monitor settings from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/vedantwpatil/mouse-monitor/internal/tracking"
)

const (
	appName        = "mouse-monitor"
	configFileName = "config.json"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full set of options.
type Config struct {
	Settings Settings       `json:"settings"`
	Sources  []SourceConfig `json:"sources"`
	Overlay  OverlayConfig  `json:"overlay"`
	Tracking TrackingConfig `json:"tracking"`
	Logging  LoggingConfig  `json:"logging"`

	// Path is where the config was loaded from, empty for defaults.
	Path string `json:"-"`
}

// Settings selects which channels are monitored and where they are shown.
type Settings struct {
	Click  ChannelSettings `json:"click"`
	Move   ChannelSettings `json:"move"`
	Scroll ChannelSettings `json:"scroll"`
}

// ChannelSettings is the enable flag and sink name of one channel.
type ChannelSettings struct {
	Enabled bool   `json:"enabled"`
	Sink    string `json:"sink"`
}

// SourceConfig declares a sink the overlay server hosts.
type SourceConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type OverlayConfig struct {
	Addr string `json:"addr"`
}

type TrackingConfig struct {
	// MaxPendingClicks caps clicks queued between ticks; 0 is unbounded.
	MaxPendingClicks int `json:"max_pending_clicks"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// NewConfig returns the defaults: one browser overlay receiving all three
// channels, with nothing enabled until the user opts in.
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			Click:  ChannelSettings{Sink: "mouse"},
			Move:   ChannelSettings{Sink: "mouse"},
			Scroll: ChannelSettings{Sink: "mouse"},
		},
		Sources: []SourceConfig{
			{Name: "mouse", Type: "browser_source"},
		},
		Overlay: OverlayConfig{
			Addr: "127.0.0.1:4455",
		},
		Tracking: TrackingConfig{
			MaxPendingClicks: tracking.DefaultMaxPendingClicks,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the per-user config location.
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(appName, configFileName))
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// Load reads path, or the default location when path is empty. A missing
// file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Path = path
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault saves the defaults to path, or the default location when
// empty, and returns where they were written. An existing file is never
// overwritten.
func WriteDefault(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return "", err
		}
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("write default config: %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if err := NewConfig().Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Save writes the config to path, or the default location when empty.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	for _, ch := range []*ChannelSettings{&c.Settings.Click, &c.Settings.Move, &c.Settings.Scroll} {
		ch.Sink = strings.TrimSpace(ch.Sink)
	}
	for i := range c.Sources {
		c.Sources[i].Name = strings.TrimSpace(c.Sources[i].Name)
		c.Sources[i].Type = strings.ToLower(strings.TrimSpace(c.Sources[i].Type))
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	channels := []struct {
		name string
		ch   ChannelSettings
	}{
		{"click", c.Settings.Click},
		{"move", c.Settings.Move},
		{"scroll", c.Settings.Scroll},
	}
	for _, ch := range channels {
		if ch.ch.Enabled && ch.ch.Sink == "" {
			return fmt.Errorf("%w: settings.%s.sink must be set when enabled", ErrInvalid, ch.name)
		}
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("%w: sources[%d].name must not be empty", ErrInvalid, i)
		}
		if seen[src.Name] {
			return fmt.Errorf("%w: duplicate source %q", ErrInvalid, src.Name)
		}
		seen[src.Name] = true
		switch src.Type {
		case "browser_source", "text_source":
		default:
			return fmt.Errorf("%w: source %q has unknown type %q", ErrInvalid, src.Name, src.Type)
		}
	}

	if strings.TrimSpace(c.Overlay.Addr) == "" {
		return fmt.Errorf("%w: overlay.addr must not be empty", ErrInvalid)
	}
	if c.Tracking.MaxPendingClicks < 0 {
		return fmt.Errorf("%w: tracking.max_pending_clicks must not be negative", ErrInvalid)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}
