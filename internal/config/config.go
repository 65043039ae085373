// Package config loads the service configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"capturevision/internal/logging"
)

// Environment variables that override the file.
const (
	EnvLicense   = "CAPTUREVISION_LICENSE"
	EnvTemplates = "CAPTUREVISION_TEMPLATES"
)

// Engine kinds.
const (
	EngineDefault = "default"
	EngineStub    = "stub"
)

// Config is the service configuration.
type Config struct {
	License   string         `yaml:"license" json:"license"`
	Templates string         `yaml:"templates" json:"templates"`
	Builtin   string         `yaml:"builtin" json:"builtin"`
	Engine    EngineConfig   `yaml:"engine" json:"engine"`
	Throttle  ThrottleConfig `yaml:"throttle" json:"throttle"`
	Journal   JournalConfig  `yaml:"journal" json:"journal"`
	Log       LogConfig      `yaml:"log" json:"log"`
}

// EngineConfig selects and bounds the vision engine.
type EngineConfig struct {
	Kind    string   `yaml:"kind" json:"kind"`
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// ThrottleConfig limits engine runs per second. Rate 0 disables it.
type ThrottleConfig struct {
	Rate  float64 `yaml:"rate" json:"rate"`
	Burst int     `yaml:"burst" json:"burst"`
}

// JournalConfig points at the SQLite journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LogConfig is passed to logging.Init.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Builtin: "default",
		Engine: EngineConfig{
			Kind:    EngineDefault,
			Timeout: Duration(30 * time.Second),
		},
		Throttle: ThrottleConfig{Burst: 1},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFromPath reads a config file. Format is detected by extension
// (.yaml/.yml or .json) or, failing that, by content.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses data over Default. ext is a format hint; empty means detect.
func Load(data []byte, ext string) (*Config, error) {
	cfg := Default()
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		ext = ".json"
	}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLicense); ok && v != "" {
		c.License = v
	}
	if v, ok := lookup(EnvTemplates); ok && v != "" {
		c.Templates = v
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineDefault, EngineStub:
	default:
		return fmt.Errorf("config: unknown engine kind %q (want %s or %s)", c.Engine.Kind, EngineDefault, EngineStub)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("config: negative engine timeout %s", c.Engine.Timeout)
	}
	if c.Throttle.Rate < 0 || c.Throttle.Burst < 0 {
		return fmt.Errorf("config: throttle rate and burst must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
