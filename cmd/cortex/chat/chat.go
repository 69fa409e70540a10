// Package chatcmder provides the chat command for talking to a Cortex copilot.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/cmd/cortex/sqlitepath"
	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/dotdir"
	"github.com/papercomputeco/cortex/pkg/history"
	"github.com/papercomputeco/cortex/pkg/runevent"
)

const chatLongDesc string = `Chat with a Cortex copilot.

With a message argument a single turn is run. Without one, lines are read from
stdin until EOF or /exit. Replies stream to stdout as they are generated.

The conversation is stored in the history database and resumed by the next
chat against the same copilot. Use --new to start over or --session to pick a
stored conversation.

Examples:
  cortex chat --copilot cop_123 --knowledge kb_1
  cortex chat "What changed in the setup guide?"
  cortex chat --new --markdown`

const chatShortDesc string = "Chat with a Cortex copilot"

type chatCommander struct {
	newSession bool
	sessionID  string
	markdown   bool

	cfg        *config.Config
	configDir  string
	client     *cortex.Client
	store      *history.Store
	transcript []chat.Message
	logger     *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmdutil.AddClientFlags(cmd)
	for _, key := range []string{
		config.FlagChatVersion,
		config.FlagProjectID,
		config.FlagKnowledge,
		config.FlagCopilot,
		config.FlagSQLite,
	} {
		config.AddStringFlag(cmd, config.ChatFlags, key, new(string))
	}
	cmd.Flags().BoolVar(&cmder.newSession, "new", false, "Start a new conversation")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Resume a stored conversation by id")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render replies as markdown once complete instead of streaming them")

	cmd.AddCommand(newSessionsCmd())

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command, args []string) error {
	if c.newSession && c.sessionID != "" {
		return errors.New("--new and --session cannot be used together")
	}

	cfg, err := cmdutil.LoadConfig(cmd, config.ChatFlags)
	if err != nil {
		return err
	}
	if cfg.Chat.Copilot == "" {
		return errors.New("no copilot: pass --copilot or set chat.copilot")
	}
	c.cfg = cfg
	c.configDir = cmdutil.ConfigDir(cmd)
	c.logger = cmdutil.NewLogger(cmd)

	client, pub, err := cmdutil.NewClient(cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	c.client = client

	store, err := openStore(cfg, c.configDir)
	if err != nil {
		return err
	}
	defer store.Close()
	c.store = store

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sessionID, err := c.resolveSession(ctx)
	if err != nil {
		return err
	}

	c.transcript, err = store.Messages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	c.logger.Debug("chat session ready", "session", sessionID, "messages", len(c.transcript))

	if len(args) == 1 {
		return c.turn(ctx, cmd.OutOrStdout(), sessionID, args[0])
	}
	return c.loop(ctx, cmd, sessionID)
}

func openStore(cfg *config.Config, configDir string) (*history.Store, error) {
	path, err := sqlitepath.ResolveSQLitePath(cfg.History.SQLitePath, configDir)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

// resolveSession picks the conversation to append to: --session, else the
// saved session for this copilot unless --new, else a fresh one. The choice
// is saved so the next chat resumes it.
func (c *chatCommander) resolveSession(ctx context.Context) (string, error) {
	dotdirs := dotdir.NewManager()

	id := c.sessionID
	if id == "" && !c.newSession {
		state, err := dotdirs.LoadSessionState(c.configDir)
		if err != nil {
			return "", err
		}
		if state != nil && state.CopilotID == c.cfg.Chat.Copilot {
			id = state.SessionID
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	err := c.store.CreateSession(ctx, history.Session{
		ID:        id,
		CopilotID: c.cfg.Chat.Copilot,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", err
	}

	state := &dotdir.SessionState{
		SessionID: id,
		CopilotID: c.cfg.Chat.Copilot,
		Knowledge: c.cfg.Chat.Knowledge,
		UpdatedAt: time.Now(),
	}
	if err := dotdirs.SaveSessionState(state, c.configDir); err != nil {
		return "", err
	}

	return id, nil
}

func (c *chatCommander) loop(ctx context.Context, cmd *cobra.Command, sessionID string) error {
	in := cmd.InOrStdin()
	errOut := cmd.ErrOrStderr()

	interactive := cliui.IsTerminal(in)
	if interactive {
		fmt.Fprintf(errOut, "%s %s\n", cliui.DimStyle.Render("session"), cliui.IDStyle.Render(sessionID))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			fmt.Fprint(errOut, cliui.RoleStyle.Render("you")+" > ")
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		if err := c.turn(ctx, cmd.OutOrStdout(), sessionID, input); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(errOut, "%s %s\n", cliui.FailMark, err)
		}
	}

	return scanner.Err()
}

// turn runs one chat turn and appends the user message, any OUTPUT messages
// and the reply to the stored conversation.
func (c *chatCommander) turn(ctx context.Context, out io.Writer, sessionID, input string) error {
	streamed := false
	onEvent := func(ev runevent.Event) {
		if c.markdown {
			return
		}
		if t, ok := ev.(*runevent.Tokens); ok && t.Tokens.Text != "" {
			if !streamed {
				fmt.Fprintf(out, "%s ", cliui.RoleStyle.Render(string(chat.RoleAssistant)))
				streamed = true
			}
			fmt.Fprint(out, t.Tokens.Text)
		}
	}

	completion, err := c.client.RunChatCompletion(ctx, cortex.ChatCompletionRequest{
		Version:   cortex.Version(c.cfg.Chat.Version),
		Messages:  c.transcript,
		Input:     input,
		ProjectID: c.cfg.Chat.ProjectID,
		Knowledge: c.cfg.Chat.Knowledge,
		CopilotID: c.cfg.Chat.Copilot,
		OnEvent:   onEvent,
	})
	if err != nil {
		if streamed {
			fmt.Fprintln(out)
		}
		return err
	}

	if c.markdown {
		fmt.Fprint(out, renderReply(cliui.RenderMarkdown, completion.Response.Content, c.logger))
	} else if streamed {
		fmt.Fprintln(out)
	}
	printSources(out, completion.Response.Retrievals)

	next := append(completion.Messages, completion.Response)
	if err := c.store.AppendMessages(ctx, sessionID, next[len(c.transcript):]); err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	c.transcript = next

	return nil
}

// renderReply renders content with render, falling back to the raw text when
// rendering fails.
func renderReply(render func(string) (string, error), content string, log *slog.Logger) string {
	rendered, err := render(content)
	if err != nil {
		log.Debug("rendering reply", "error", err)
		return content + "\n"
	}
	return rendered
}

func printSources(out io.Writer, docs []chat.RetrievedDocument) {
	if len(docs) == 0 {
		return
	}

	fmt.Fprintf(out, "\n%s\n", cliui.DimStyle.Render("sources"))
	for i, doc := range docs {
		line := fmt.Sprintf("  [%d] %s", i+1, cliui.IDStyle.Render(doc.DocumentID))
		if doc.SourceURL != "" {
			line += " " + cliui.DimStyle.Render(doc.SourceURL)
		}
		fmt.Fprintln(out, line)
	}
}
