package credentials

import "time"

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version  int                `toml:"version"`
	Profiles map[string]Profile `toml:"profiles"`
}

// Profile holds the API key for one Cortex account.
type Profile struct {
	APIKey   string    `toml:"api_key"`
	StoredAt time.Time `toml:"stored_at,omitempty"`
}

// Masked returns the key with all but its last four characters hidden.
func (p Profile) Masked() string {
	const visible = 4
	if len(p.APIKey) <= visible {
		return "****"
	}
	return "****" + p.APIKey[len(p.APIKey)-visible:]
}
