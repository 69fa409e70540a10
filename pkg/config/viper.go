package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/cortex/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable read by InitViper.
const EnvPrefix = "CORTEX"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CORTEX_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CORTEX_CLIENT_USER_ID, CORTEX_CHAT_COPILOT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: CORTEX_CLIENT_BASE_URL, CORTEX_EVENTS_BROKERS, etc.
	// Lists in the environment are whitespace separated.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration.
func FromViper(v *viper.Viper) *Config {
	var brokers []string
	if b := v.GetStringSlice("events.brokers"); len(b) > 0 {
		brokers = b
	}

	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			BaseURL:    v.GetString("client.base_url"),
			CopilotURL: v.GetString("client.copilot_url"),
			UserID:     v.GetString("client.user_id"),
			Profile:    v.GetString("client.profile"),
			Timeout:    v.GetString("client.timeout"),
		},
		Chat: ChatConfig{
			Version:   v.GetString("chat.version"),
			ProjectID: v.GetString("chat.project_id"),
			Knowledge: v.GetString("chat.knowledge"),
			Copilot:   v.GetString("chat.copilot"),
		},
		History: HistoryConfig{
			SQLitePath: v.GetString("history.sqlite_path"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  brokers,
			Topic:    v.GetString("events.topic"),
		},
		Sync: SyncConfig{
			Workers:   v.GetUint("sync.workers"),
			QueueSize: v.GetUint("sync.queue_size"),
		},
		MCP: MCPConfig{
			Listen: v.GetString("mcp.listen"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.copilot_url", d.Client.CopilotURL)
	v.SetDefault("client.user_id", d.Client.UserID)
	v.SetDefault("client.profile", d.Client.Profile)
	v.SetDefault("client.timeout", d.Client.Timeout)

	// Chat
	v.SetDefault("chat.version", d.Chat.Version)
	v.SetDefault("chat.project_id", d.Chat.ProjectID)
	v.SetDefault("chat.knowledge", d.Chat.Knowledge)
	v.SetDefault("chat.copilot", d.Chat.Copilot)

	// History
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Sync
	v.SetDefault("sync.workers", d.Sync.Workers)
	v.SetDefault("sync.queue_size", d.Sync.QueueSize)

	// MCP
	v.SetDefault("mcp.listen", d.MCP.Listen)
}
