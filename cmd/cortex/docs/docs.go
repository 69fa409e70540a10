// Package docscmder provides the docs command for managing knowledge base
// documents.
package docscmder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/utils"
)

const docsLongDesc string = `Manage documents in a Cortex knowledge base.

The knowledge base comes from --knowledge or chat.knowledge.

Examples:
  cortex docs get guides_setup.md
  cortex docs upload ./guides/setup.md --id setup
  cortex docs delete setup
  cortex docs sync ./guides --watch`

const docsShortDesc string = "Manage knowledge base documents"

func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: docsShortDesc,
		Long:  docsLongDesc,
	}

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// docsCommander holds what every docs subcommand resolves before running.
type docsCommander struct {
	cfg       *config.Config
	knowledge string
	client    *cortex.Client
	publisher eventstream.Publisher
	logger    *slog.Logger
}

func addDocsFlags(cmd *cobra.Command) {
	cmdutil.AddClientFlags(cmd)
	config.AddStringFlag(cmd, config.ChatFlags, config.FlagKnowledge, new(string))
}

func newDocsCommander(cmd *cobra.Command, sets ...config.FlagSet) (*docsCommander, error) {
	cfg, err := cmdutil.LoadConfig(cmd, append([]config.FlagSet{config.ChatFlags}, sets...)...)
	if err != nil {
		return nil, err
	}
	if cfg.Chat.Knowledge == "" {
		return nil, errors.New("no knowledge base: pass --knowledge or set chat.knowledge")
	}

	log := cmdutil.NewLogger(cmd)
	client, pub, err := cmdutil.NewClient(cfg, cmdutil.ConfigDir(cmd), log)
	if err != nil {
		return nil, err
	}

	return &docsCommander{
		cfg:       cfg,
		knowledge: cfg.Chat.Knowledge,
		client:    client,
		publisher: pub,
		logger:    log,
	}, nil
}

func (c *docsCommander) close() {
	if err := c.publisher.Close(); err != nil {
		c.logger.Debug("closing publisher", "error", err)
	}
}

func printDocument(out io.Writer, d cortex.Document, withText bool) {
	fmt.Fprintf(out, "\n  %s  %s\n", cliui.KeyStyle.Render("document"), cliui.NameStyle.Render(d.DocumentID))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("hash    "), cliui.IDStyle.Render(d.Hash))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("size    "),
		cliui.ValueStyle.Render(fmt.Sprintf("%d bytes, %d chunks", d.TextSize, d.ChunkCount)))
	if len(d.Tags) > 0 {
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("tags    "), cliui.ValueStyle.Render(fmt.Sprint(d.Tags)))
	}
	if d.SourceURL != nil {
		fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("source  "), cliui.DimStyle.Render(*d.SourceURL))
	}
	if withText && d.Text != nil {
		fmt.Fprintf(out, "\n%s\n", cliui.DimStyle.Render(utils.Truncate(*d.Text, 2000)))
	}
	fmt.Fprintln(out)
}
