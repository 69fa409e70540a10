// Package cmdutil wires configuration, credentials and the Cortex client
// together for the cortex commands.
package cmdutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/credentials"
	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/eventstream/kafka"
	"github.com/papercomputeco/cortex/pkg/eventstream/nop"
	"github.com/papercomputeco/cortex/pkg/logger"
)

// ConfigDir returns the --config-dir flag, or "" when unset or undefined.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// Debug returns the --debug flag.
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// LogFormat returns the --log-format flag. Unset or undefined means pretty.
func LogFormat(cmd *cobra.Command) (logger.Format, error) {
	format, _ := cmd.Flags().GetString("log-format")
	return logger.ParseFormat(format)
}

// NewLogger returns the stderr logger every command uses, so that stdout
// stays free for command output. An invalid --log-format falls back to
// pretty; the root command validates it before any command runs.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	format, err := LogFormat(cmd)
	if err != nil {
		format = logger.FormatPretty
	}
	return logger.New(
		logger.WithDebug(Debug(cmd)),
		logger.WithFormat(format),
		logger.WithWriter(os.Stderr),
	)
}

// NewServiceLogger returns NewLogger's logger, also writing JSON records to
// logFile when it is set. The returned func closes the file.
func NewServiceLogger(cmd *cobra.Command, logFile string) (*slog.Logger, func() error, error) {
	stderr := NewLogger(cmd)
	if logFile == "" {
		return stderr, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(Debug(cmd)),
		logger.WithFormat(logger.FormatJSON),
		logger.WithSource(Debug(cmd)),
		logger.WithWriter(f),
	)
	return logger.Tee(stderr, file), f.Close, nil
}

// AddClientFlags registers the flags every API command shares. Their values
// are only read back through viper, see LoadConfig.
func AddClientFlags(cmd *cobra.Command) {
	for _, key := range []string{
		config.FlagBaseURL,
		config.FlagCopilotURL,
		config.FlagUserID,
		config.FlagProfile,
		config.FlagTimeout,
		config.FlagEventsProvider,
		config.FlagKafkaTopic,
	} {
		config.AddStringFlag(cmd, config.ClientFlags, key, new(string))
	}
	config.AddStringSliceFlag(cmd, config.ClientFlags, config.FlagKafkaBrokers, new([]string))
}

// LoadConfig resolves the effective configuration for cmd: defaults, then
// config.toml, then CORTEX_* environment, then any of the given flag sets'
// flags registered on cmd.
func LoadConfig(cmd *cobra.Command, sets ...config.FlagSet) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, err
	}

	for _, fs := range append([]config.FlagSet{config.ClientFlags}, sets...) {
		config.BindRegisteredFlags(v, cmd, fs, keys(fs))
	}

	return config.FromViper(v), nil
}

func keys(fs config.FlagSet) []string {
	out := make([]string, 0, len(fs))
	for k := range fs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewPublisher builds the run event publisher selected by events.provider.
func NewPublisher(c config.EventsConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", config.EventsProviderNone:
		return nop.NewPublisher(log), nil
	case config.EventsProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: c.Brokers,
			Topic:   c.Topic,
			Logger:  log,
		})
	default:
		return nil, fmt.Errorf("unknown events provider %q", c.Provider)
	}
}

// NewClient builds a client from cfg and the API key resolved for the
// configured profile. The returned publisher must be closed by the caller.
func NewClient(cfg *config.Config, configDir string, log *slog.Logger) (*cortex.Client, eventstream.Publisher, error) {
	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading credentials: %w", err)
	}

	apiKey, err := creds.ResolveAPIKey(cfg.Client.Profile)
	if err != nil {
		return nil, nil, fmt.Errorf("reading credentials: %w", err)
	}
	if apiKey == "" {
		return nil, nil, errors.New("no API key found: run 'cortex auth' or set " + credentials.EnvAPIKey)
	}

	timeout, err := cfg.Client.TimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	pub, err := NewPublisher(cfg.Events, log)
	if err != nil {
		return nil, nil, err
	}

	client, err := cortex.New(
		cortex.WithAPIKey(apiKey),
		cortex.WithUserID(cfg.Client.UserID),
		cortex.WithBaseURL(cfg.Client.BaseURL),
		cortex.WithCopilotURL(cfg.Client.CopilotURL),
		cortex.WithTimeout(timeout),
		cortex.WithLogger(log),
		cortex.WithPublisher(pub),
	)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}

	return client, pub, nil
}
