package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/cortex/pkg/dotdir"
)

const (
	configFile = "config.toml"

	v0 = 0

	// CurrentV is the config.toml version this build reads and writes.
	CurrentV = v0
)

// Configer reads and writes config.toml inside a resolved .cortex/ directory.
type Configer struct {
	path string
}

// NewConfiger resolves the .cortex/ directory (see dotdir.Manager.Target)
// and points at the config.toml inside it. The file need not exist.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{path: path}, nil
}

// GetTarget returns the config.toml path, or "" when no directory resolved.
func (c *Configer) GetTarget() string {
	return c.path
}

// ValidConfigKeys returns the settable keys in config.toml section order.
func ValidConfigKeys() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

// IsValidConfigKey reports whether key can be read or written with
// GetConfigValue and SetConfigValue.
func IsValidConfigKey(key string) bool {
	_, ok := lookupKey(key)
	return ok
}

// LoadConfig reads config.toml on top of NewDefaultConfig, so keys absent
// from the file keep their defaults. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewDefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

// SaveConfig writes cfg to config.toml with owner-only permissions.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.path == "" {
		return errors.New("cannot save empty target path")
	}

	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue validates value for key and persists it.
func (c *Configer) SetConfigValue(key, value string) error {
	k, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// UnsetConfigValue restores key to its default and persists the result.
func (c *Configer) UnsetConfigValue(key string) error {
	k, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, k.get(NewDefaultConfig())); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// Values returns the effective value of every key, in ValidConfigKeys order.
func (c *Configer) Values() ([][2]string, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	out := make([][2]string, len(configKeys))
	for i, k := range configKeys {
		out[i] = [2]string{k.name, k.get(cfg)}
	}
	return out, nil
}

// GetConfigValue returns the effective value of key, defaults included.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, ok := lookupKey(key)
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return k.get(cfg), nil
}

// ParseConfigTOML decodes data over the default config. Only version 0 is
// accepted.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
