// Package config loads the application configuration: Jira connection
// settings, the local metric store location, and the per-field rollup
// definitions. Field definitions can live in a TOML or JSON file; the
// format is picked by file extension.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rollup-metrics/rollup/internal/types"
)

// DefaultConfigDir is the per-user directory holding config and state.
const DefaultConfigDir = ".rollup"

// DefaultStoreFile is the sqlite metric store filename inside the
// config directory.
const DefaultStoreFile = "metrics.db"

// JiraConfig holds the connection settings for the Jira instance.
type JiraConfig struct {
	URL      string `toml:"url" json:"url" yaml:"url"`
	Username string `toml:"username" json:"username,omitempty" yaml:"username,omitempty"`
	APIToken string `toml:"api_token" json:"api_token,omitempty" yaml:"api_token,omitempty"`
}

// Config is the full application configuration.
type Config struct {
	Jira JiraConfig `toml:"jira" json:"jira" yaml:"jira"`

	// StorePath overrides the default metric store location.
	StorePath string `toml:"store_path" json:"store_path,omitempty" yaml:"store_path,omitempty"`

	// MirrorProperty is the issue property name metrics are mirrored to.
	// Empty disables mirroring.
	MirrorProperty string `toml:"mirror_property" json:"mirror_property,omitempty" yaml:"mirror_property,omitempty"`

	// Fields maps a field identifier to its rollup definition.
	Fields map[string]types.FieldConfig `toml:"fields" json:"fields" yaml:"fields"`
}

// Default returns a configuration with no Jira connection and a single
// story-point-sum field, enough to exercise the engine locally.
func Default() *Config {
	return &Config{
		Fields: map[string]types.FieldConfig{
			"rollup": {FormulaType: types.FormulaStoryPointSum},
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.rollup/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultConfigDir, "config.toml")
	}
	return filepath.Join(home, DefaultConfigDir, "config.toml")
}

// Load reads a config file, TOML or JSON by extension. A missing file
// returns the defaults rather than an error, so first runs work without
// setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from flag or default
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config back out, TOML or JSON by extension, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		var buf strings.Builder
		err = toml.NewEncoder(&buf).Encode(c)
		data = []byte(buf.String())
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// normalize applies defaults to every field definition and validates
// them. Field definitions are updated in place.
func (c *Config) normalize() error {
	if c.Fields == nil {
		c.Fields = map[string]types.FieldConfig{}
	}
	for id, fc := range c.Fields {
		fc.ApplyDefaults()
		if err := fc.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", id, err)
		}
		c.Fields[id] = fc
	}
	return nil
}

// Field returns the definition for a field id, or an error naming the
// known ids when it does not exist.
func (c *Config) Field(id string) (types.FieldConfig, error) {
	fc, ok := c.Fields[id]
	if !ok {
		known := make([]string, 0, len(c.Fields))
		for k := range c.Fields {
			known = append(known, k)
		}
		return types.FieldConfig{}, fmt.Errorf("unknown field %q (configured: %s)", id, strings.Join(known, ", "))
	}
	return fc, nil
}

// ResolveStorePath returns the sqlite store path: the configured
// override, or the default inside the user config directory.
func (c *Config) ResolveStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultConfigDir, DefaultStoreFile)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultStoreFile)
}
