package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --knowledge
// on "cortex chat", "cortex docs sync" and "cortex serve mcp").
type Flag struct {
	// Name is the long flag name (e.g. "knowledge").
	Name string

	// Shorthand is the one-letter short flag (e.g. "k"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "chat.knowledge").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL        = "base-url"
	FlagCopilotURL     = "copilot-url"
	FlagUserID         = "user-id"
	FlagProfile        = "profile"
	FlagTimeout        = "timeout"
	FlagChatVersion    = "chat-version"
	FlagProjectID      = "project-id"
	FlagKnowledge      = "knowledge"
	FlagCopilot        = "copilot"
	FlagSQLite         = "sqlite"
	FlagEventsProvider = "events-provider"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagSyncWorkers    = "workers"
	FlagSyncQueueSize  = "queue-size"
	FlagMCPListen      = "listen"
)

// ClientFlags are shared by every command that talks to the Cortex API.
var ClientFlags = FlagSet{
	FlagBaseURL:        {Name: "base-url", ViperKey: "client.base_url", Description: "Cortex SDK base URL"},
	FlagCopilotURL:     {Name: "copilot-url", ViperKey: "client.copilot_url", Description: "Base URL for copilot requests (defaults to --base-url)"},
	FlagUserID:         {Name: "user-id", Shorthand: "u", ViperKey: "client.user_id", Description: "Cortex user id owning the project"},
	FlagProfile:        {Name: "profile", Shorthand: "p", ViperKey: "client.profile", Description: "Credentials profile holding the API key"},
	FlagTimeout:        {Name: "timeout", ViperKey: "client.timeout", Description: "Timeout for non-streaming requests"},
	FlagEventsProvider: {Name: "events-provider", ViperKey: "events.provider", Description: "Run event publisher (none, kafka)"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "events.brokers", Description: "Kafka bootstrap brokers"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "events.topic", Description: "Kafka topic for run events"},
}

// ChatFlags configure chat turns.
var ChatFlags = FlagSet{
	FlagChatVersion: {Name: "chat-version", ViperKey: "chat.version", Description: "Copilot version to run"},
	FlagProjectID:   {Name: "project-id", ViperKey: "chat.project_id", Description: "Project owning the knowledge base"},
	FlagKnowledge:   {Name: "knowledge", Shorthand: "k", ViperKey: "chat.knowledge", Description: "Knowledge base used for retrieval"},
	FlagCopilot:     {Name: "copilot", Shorthand: "c", ViperKey: "chat.copilot", Description: "Copilot id"},
	FlagSQLite:      {Name: "sqlite", Shorthand: "s", ViperKey: "history.sqlite_path", Description: "Path to the chat history SQLite database"},
}

// SyncFlags tune document sync.
var SyncFlags = FlagSet{
	FlagKnowledge:     ChatFlags[FlagKnowledge],
	FlagSyncWorkers:   {Name: "workers", Shorthand: "w", ViperKey: "sync.workers", Description: "Number of concurrent upload workers"},
	FlagSyncQueueSize: {Name: "queue-size", ViperKey: "sync.queue_size", Description: "Pending job buffer size"},
}

// MCPFlags configure "cortex serve mcp".
var MCPFlags = FlagSet{
	FlagMCPListen: {Name: "listen", Shorthand: "l", ViperKey: "mcp.listen", Description: "Address for the MCP server to listen on"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a comma separated string slice flag on cmd.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, key string, target *[]string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultStringSlice returns the default string slice value for a viper key from NewDefaultConfig.
func defaultStringSlice(viperKey string) []string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetStringSlice(viperKey)
}
