// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"github.com/spf13/cobra"

	mcpcmder "github.com/papercomputeco/cortex/cmd/cortex/serve/mcp"
)

const serveLongDesc string = `Run Cortex services.

Use subcommands to run individual services:
  cortex serve mcp           Run the MCP server over streamable HTTP
  cortex serve mcp --stdio   Run the MCP server over stdin/stdout`

const serveShortDesc string = "Run Cortex services"

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
	}

	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}
