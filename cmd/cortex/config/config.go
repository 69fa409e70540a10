// Package configcmder implements "cortex config", which reads and edits
// config.toml in the .cortex/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/config"
)

const configLongDesc string = `Read and edit config.toml in the .cortex/ directory.

Values in config.toml are the defaults for command flags. CORTEX_*
environment variables override the file and flags override both.

Keys are "section.field":
  client.base_url, client.copilot_url, client.user_id, client.profile, client.timeout,
  chat.version, chat.project_id, chat.knowledge, chat.copilot,
  history.sqlite_path,
  events.provider, events.brokers, events.topic,
  sync.workers, sync.queue_size,
  mcp.listen

Examples:
  cortex config set client.user_id u_123
  cortex config set chat.copilot cp_456
  cortex config get chat.knowledge
  cortex config unset chat.knowledge
  cortex config list --json`

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit persistent cortex configuration",
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUnsetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// open validates key, when given, and returns the Configer for cmd's
// --config-dir.
func open(cmd *cobra.Command, key string) (*config.Configer, error) {
	if key != "" && !config.IsValidConfigKey(key) {
		return nil, fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(cmdutil.ConfigDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfger, nil
}

// completeKey completes the first positional argument with config keys.
func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, target string) {
	if target == "" {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
		return
	}
	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
}

func printValue(out io.Writer, key, value string) {
	rendered := cliui.ValueStyle.Render(value)
	if value == "" {
		rendered = cliui.DimStyle.Render("<not set>")
	}
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(key), rendered)
}
