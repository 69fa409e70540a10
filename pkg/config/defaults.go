package config

import "time"

const (
	// EventsProviderNone disables run event publishing.
	EventsProviderNone = "none"

	// EventsProviderKafka publishes run events to a Kafka topic.
	EventsProviderKafka = "kafka"
)

const (
	defaultBaseURL = "https://trycortex.ai/api/sdk"
	defaultTimeout = 60 * time.Second

	defaultChatVersion = "latest"

	defaultEventsTopic = "cortex.run.events"

	defaultSyncWorkers   = 4
	defaultSyncQueueSize = 256

	defaultMCPListen = ":8090"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL: defaultBaseURL,
			Timeout: defaultTimeout.String(),
		},
		Chat: ChatConfig{
			Version: defaultChatVersion,
		},
		Events: EventsConfig{
			Provider: EventsProviderNone,
			Topic:    defaultEventsTopic,
		},
		Sync: SyncConfig{
			Workers:   defaultSyncWorkers,
			QueueSize: defaultSyncQueueSize,
		},
		MCP: MCPConfig{
			Listen: defaultMCPListen,
		},
	}
}
