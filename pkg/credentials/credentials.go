// Package credentials stores Cortex API keys per profile in
// credentials.toml, next to config.toml in the .cortex/ directory.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/cortex/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// DefaultProfile is used when no profile is named.
	DefaultProfile = "default"

	// EnvAPIKey overrides any stored key.
	EnvAPIKey = "CORTEX_API_KEY"
)

// Manager reads and writes one credentials.toml.
type Manager struct {
	path string
	now  func() time.Time
}

// NewManager resolves the .cortex/ directory from override (see
// dotdir.Manager.Target) and returns a Manager for the credentials file in it.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path: filepath.Join(dir, credentialsFile),
		now:  time.Now,
	}, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.path
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Profiles == nil {
		creds.Profiles = make(map[string]Profile)
	}
	return creds, nil
}

// Save replaces credentials.toml with creds. The file is written to a
// temporary sibling with mode 0600 and renamed into place, so readers never
// see a partial file.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(creds); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores key for profile, replacing any previous key.
func (m *Manager) SetKey(profile, key string) error {
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	return m.update(func(c *Credentials) {
		c.Profiles[profileName(profile)] = Profile{APIKey: key, StoredAt: m.now().UTC()}
	})
}

// RemoveKey deletes the key stored for profile. Unknown profiles are ignored.
func (m *Manager) RemoveKey(profile string) error {
	return m.update(func(c *Credentials) {
		delete(c.Profiles, profileName(profile))
	})
}

// GetKey returns the key stored for profile, or "" if there is none.
func (m *Manager) GetKey(profile string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Profiles[profileName(profile)].APIKey, nil
}

// ResolveAPIKey returns $CORTEX_API_KEY when set, otherwise the key stored
// for profile.
func (m *Manager) ResolveAPIKey(profile string) (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	return m.GetKey(profile)
}

// ListProfiles returns the names of profiles with a stored key, sorted.
func (m *Manager) ListProfiles() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(creds.Profiles))
	for name := range creds.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func profileName(p string) string {
	if p == "" {
		return DefaultProfile
	}
	return p
}
