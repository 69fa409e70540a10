package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent cortex configuration stored as config.toml
// in the .cortex/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Chat    ChatConfig    `toml:"chat"`
	History HistoryConfig `toml:"history"`
	Events  EventsConfig  `toml:"events"`
	Sync    SyncConfig    `toml:"sync"`
	MCP     MCPConfig     `toml:"mcp"`
}

// ClientConfig holds the connection settings for the Cortex API.
type ClientConfig struct {
	BaseURL    string `toml:"base_url,omitempty"`
	CopilotURL string `toml:"copilot_url,omitempty"`
	UserID     string `toml:"user_id,omitempty"`

	// Profile names the credentials.toml entry holding the API key.
	Profile string `toml:"profile,omitempty"`

	// Timeout bounds non-streaming requests, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value yields zero.
func (c ClientConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout: %w", err)
	}
	return d, nil
}

// ChatConfig holds the defaults for "cortex chat" and the MCP chat tool.
type ChatConfig struct {
	Version   string `toml:"version,omitempty"`
	ProjectID string `toml:"project_id,omitempty"`
	Knowledge string `toml:"knowledge,omitempty"`
	Copilot   string `toml:"copilot,omitempty"`
}

// HistoryConfig holds chat transcript storage settings.
type HistoryConfig struct {
	// SQLitePath defaults to history.db in the .cortex/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// EventsConfig selects where observed run events are published.
type EventsConfig struct {
	// Provider is "none" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// SyncConfig tunes the document sync worker pool.
type SyncConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKey is one dotted "section.field" key settable through
// "cortex config set".
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

// configKeys lists every settable key in config.toml section order.
var configKeys = []configKey{
	{
		name: "client.base_url",
		get:  func(c *Config) string { return c.Client.BaseURL },
		set:  func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	{
		name: "client.copilot_url",
		get:  func(c *Config) string { return c.Client.CopilotURL },
		set:  func(c *Config, v string) error { c.Client.CopilotURL = v; return nil },
	},
	{
		name: "client.user_id",
		get:  func(c *Config) string { return c.Client.UserID },
		set:  func(c *Config, v string) error { c.Client.UserID = v; return nil },
	},
	{
		name: "client.profile",
		get:  func(c *Config) string { return c.Client.Profile },
		set:  func(c *Config, v string) error { c.Client.Profile = v; return nil },
	},
	{
		name: "client.timeout",
		get:  func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	{
		name: "chat.version",
		get:  func(c *Config) string { return c.Chat.Version },
		set:  func(c *Config, v string) error { c.Chat.Version = v; return nil },
	},
	{
		name: "chat.project_id",
		get:  func(c *Config) string { return c.Chat.ProjectID },
		set:  func(c *Config, v string) error { c.Chat.ProjectID = v; return nil },
	},
	{
		name: "chat.knowledge",
		get:  func(c *Config) string { return c.Chat.Knowledge },
		set:  func(c *Config, v string) error { c.Chat.Knowledge = v; return nil },
	},
	{
		name: "chat.copilot",
		get:  func(c *Config) string { return c.Chat.Copilot },
		set:  func(c *Config, v string) error { c.Chat.Copilot = v; return nil },
	},
	{
		name: "history.sqlite_path",
		get:  func(c *Config) string { return c.History.SQLitePath },
		set:  func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	{
		name: "events.provider",
		get:  func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventsProviderNone, EventsProviderKafka:
				c.Events.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for events.provider: %q (available: none, kafka)", v)
			}
		},
	},
	{
		name: "events.brokers",
		get:  func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = nil
			for b := range strings.SplitSeq(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Events.Brokers = append(c.Events.Brokers, b)
				}
			}
			return nil
		},
	},
	{
		name: "events.topic",
		get:  func(c *Config) string { return c.Events.Topic },
		set:  func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	{
		name: "sync.workers",
		get:  func(c *Config) string { return formatUint(c.Sync.Workers) },
		set:  func(c *Config, v string) error { return parseUint("sync.workers", v, &c.Sync.Workers) },
	},
	{
		name: "sync.queue_size",
		get:  func(c *Config) string { return formatUint(c.Sync.QueueSize) },
		set:  func(c *Config, v string) error { return parseUint("sync.queue_size", v, &c.Sync.QueueSize) },
	},
	{
		name: "mcp.listen",
		get:  func(c *Config) string { return c.MCP.Listen },
		set:  func(c *Config, v string) error { c.MCP.Listen = v; return nil },
	},
}

func lookupKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.name == name {
			return k, true
		}
	}
	return configKey{}, false
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func parseUint(key, v string, dst *uint) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = uint(n)
	return nil
}
