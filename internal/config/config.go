package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	TransportMemory = "memory"
	TransportPion   = "pion"
)

var ErrInvalid = errors.New("invalid config")

// Config represents the structure of the config file
type Config struct {
	Server   ServerSection   `toml:"server"`
	Log      LogSection      `toml:"log"`
	Call     CallSection     `toml:"call"`
	Selector SelectorSection `toml:"selector"`
	Metrics  MetricsSection  `toml:"metrics"`
}

type ServerSection struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type LogSection struct {
	Level   string `toml:"level"`
	Console bool   `toml:"console"`
}

type CallSection struct {
	LocalPeerID   int64  `toml:"local_peer_id"`
	Transport     string `toml:"transport"`
	RendererDelay string `toml:"renderer_delay"`
}

type SelectorSection struct {
	FocusHold string `toml:"focus_hold"`
}

type MetricsSection struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

func Default() Config {
	return Config{
		Server: ServerSection{
			Addr:      ":8080",
			StaticDir: "./static",
		},
		Log: LogSection{
			Level:   "info",
			Console: true,
		},
		Call: CallSection{
			Transport:     TransportMemory,
			RendererDelay: "50ms",
		},
		Selector: SelectorSection{
			FocusHold: "5s",
		},
		Metrics: MetricsSection{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path, creating it with defaults if it does not exist. Missing
// keys keep their default values.
func Load(path string) (Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			// not fatal, we can still run on defaults
			log.Warn().Err(err).Str("path", path).Msg("Could not write default config")
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# callroom configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Call.Transport {
	case TransportMemory, TransportPion:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Call.Transport)
	}
	if _, err := c.RendererDelay(); err != nil {
		return err
	}
	if _, err := c.FocusHold(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics path %q must start with /", ErrInvalid, c.Metrics.Path)
	}
	return nil
}

func (c Config) RendererDelay() (time.Duration, error) {
	return parseDuration("call.renderer_delay", c.Call.RendererDelay)
}

func (c Config) FocusHold() (time.Duration, error) {
	return parseDuration("selector.focus_hold", c.Selector.FocusHold)
}

func (c Config) LogLevel() (zerolog.Level, error) {
	if c.Log.Level == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return level, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalid, key)
	}
	return d, nil
}

// ExpandHome expands a leading ~/ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
