// Package config loads the otb configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/export"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
)

// Config is the otb configuration. Zero sections are filled from Default.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// LayerTables is a YAML file replacing the built-in layer tables.
	LayerTables string `yaml:"layer_tables"`
	Export      Export `yaml:"export"`
	Server      Server `yaml:"server"`
	Watch       Watch  `yaml:"watch"`
}

type Export struct {
	Width      int    `yaml:"width" validate:"min=16,max=16384"`
	Height     int    `yaml:"height" validate:"min=16,max=16384"`
	Background string `yaml:"background" validate:"hexcolor"`
}

type Server struct {
	Addr           string   `yaml:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`
}

type Watch struct {
	// Debounce is how long the file must stay quiet before a reload.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Export: Export{
			Width:      2000,
			Height:     2000,
			Background: export.Hex(export.DefaultBackground),
		},
		Server: Server{
			Addr:           "localhost:8080",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Watch: Watch{Debounce: 100 * time.Millisecond},
	}
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	app := "otb"
	if runtime.GOOS == "windows" {
		app = "OpenTraceBoard"
	}
	return filepath.Join(dir, app, "config.yaml"), nil
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.LayerTables != "" && !filepath.IsAbs(cfg.LayerTables) {
		cfg.LayerTables = filepath.Join(filepath.Dir(path), cfg.LayerTables)
	}
	return cfg, nil
}

// Parse decodes a configuration document over the defaults. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Registry builds the layer registry, from LayerTables when set.
func (c *Config) Registry() (*layers.Registry, error) {
	if c.LayerTables == "" {
		return layers.Default(), nil
	}
	data, err := os.ReadFile(c.LayerTables)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer tables: %w", err)
	}
	reg, err := layers.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.LayerTables, err)
	}
	return reg, nil
}

// ExportOptions returns export options for the configured canvas.
func (c *Config) ExportOptions() export.Options {
	opts := export.DefaultOptions()
	opts.Width, opts.Height = c.Export.Width, c.Export.Height
	if bg, err := export.ParseColor(c.Export.Background); err == nil {
		opts.Background = bg
	}
	return opts
}
