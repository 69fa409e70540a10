// Package mcpcmder provides the cobra command running the Cortex MCP server.
package mcpcmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/api"
	"github.com/papercomputeco/cortex/api/mcp"
	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/cortex"
)

type mcpCommander struct {
	stdio   bool
	logFile string

	logger *slog.Logger
}

const mcpLongDesc string = `Run the Cortex MCP server.

The server exposes knowledge base documents, callables and copilot chat as MCP
tools. Chat defaults (copilot, knowledge base, project and version) come from
the chat.* configuration and flags.

By default the server speaks streamable HTTP on --listen at /mcp, next to
/ping and /version. With --stdio it serves a single client over stdin and
stdout instead.`

const mcpShortDesc string = "Run the Cortex MCP server"

func NewMCPCmd() *cobra.Command {
	cmder := &mcpCommander{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmdutil.AddClientFlags(cmd)
	for _, key := range []string{
		config.FlagChatVersion,
		config.FlagProjectID,
		config.FlagKnowledge,
		config.FlagCopilot,
	} {
		config.AddStringFlag(cmd, config.ChatFlags, key, new(string))
	}
	config.AddStringFlag(cmd, config.MCPFlags, config.FlagMCPListen, new(string))
	cmd.Flags().BoolVar(&cmder.stdio, "stdio", false, "Serve over stdin/stdout instead of HTTP")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *mcpCommander) run(cmd *cobra.Command) error {
	cfg, err := cmdutil.LoadConfig(cmd, config.ChatFlags, config.MCPFlags)
	if err != nil {
		return err
	}

	var closeLog func() error
	c.logger, closeLog, err = cmdutil.NewServiceLogger(cmd, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	client, pub, err := cmdutil.NewClient(cfg, cmdutil.ConfigDir(cmd), c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	server, err := mcp.NewServer(mcp.Config{
		Client: client,
		Defaults: mcp.ChatDefaults{
			Version:   cortex.Version(cfg.Chat.Version),
			ProjectID: cfg.Chat.ProjectID,
			Knowledge: cfg.Chat.Knowledge,
			CopilotID: cfg.Chat.Copilot,
		},
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	if c.stdio {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c.logger.Info("serving MCP over stdio")
		return server.ServeStdio(ctx)
	}

	return c.serveHTTP(cfg.MCP.Listen, server)
}

func (c *mcpCommander) serveHTTP(listen string, server *mcp.Server) error {
	apiServer, err := api.NewServer(api.Config{ListenAddr: listen}, server.Handler(), c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}
