// Package cortexcmder is the root of the cortex command tree.
package cortexcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/cortex/cmd/cortex/auth"
	callablecmder "github.com/papercomputeco/cortex/cmd/cortex/callable"
	chatcmder "github.com/papercomputeco/cortex/cmd/cortex/chat"
	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	configcmder "github.com/papercomputeco/cortex/cmd/cortex/config"
	docscmder "github.com/papercomputeco/cortex/cmd/cortex/docs"
	servecmder "github.com/papercomputeco/cortex/cmd/cortex/serve"
	versioncmder "github.com/papercomputeco/cortex/cmd/version"
	"github.com/papercomputeco/cortex/pkg/logger"
)

const cortexLongDesc string = `Cortex is a client for the Cortex knowledge and callable service.

Manage knowledge base documents, run callables, and chat with copilots:
  cortex auth                 Store an API key
  cortex docs sync ./docs     Mirror a directory into a knowledge base
  cortex callable run <id>    Run a callable
  cortex chat                 Chat with a copilot
  cortex serve mcp            Expose Cortex as MCP tools`

const cortexShortDesc string = "Cortex - knowledge, callables and copilots"

func NewCortexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cortex",
		Short:        cortexShortDesc,
		Long:         cortexLongDesc,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmdutil.LogFormat(cmd)
			return err
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cortex/ configuration directory")
	cmd.PersistentFlags().String("log-format", string(logger.FormatPretty), "Log format on stderr (pretty, text, json)")

	// Add subcommands
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(docscmder.NewDocsCmd())
	cmd.AddCommand(callablecmder.NewCallableCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
