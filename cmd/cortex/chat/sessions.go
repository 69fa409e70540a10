package chatcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/chat"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/history"
	"github.com/papercomputeco/cortex/pkg/utils"
)

const sessionsLongDesc string = `List stored conversations, newest first.

With --show <id> the transcript of one conversation is printed instead, and
with --delete <id> it is removed from the history database.`

func newSessionsCmd() *cobra.Command {
	var show, remove string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored conversations",
		Long:  sessionsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show != "" && remove != "" {
				return errors.New("--show and --delete cannot be used together")
			}

			cfg, err := cmdutil.LoadConfig(cmd, config.ChatFlags)
			if err != nil {
				return err
			}

			store, err := openStore(cfg, cmdutil.ConfigDir(cmd))
			if err != nil {
				return err
			}
			defer store.Close()

			switch {
			case show != "":
				return showSession(cmd, store, show)
			case remove != "":
				if err := store.DeleteSession(cmd.Context(), remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(remove))
				return nil
			default:
				return listSessions(cmd, store)
			}
		},
	}

	config.AddStringFlag(cmd, config.ChatFlags, config.FlagSQLite, new(string))
	cmd.Flags().StringVar(&show, "show", "", "Print the transcript of a conversation")
	cmd.Flags().StringVar(&remove, "delete", "", "Delete a conversation")

	return cmd
}

func listSessions(cmd *cobra.Command, store *history.Store) error {
	sessions, err := store.Sessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("no conversations"))
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintf(out, "%s  %s  %s  %s\n",
			cliui.IDStyle.Render(s.ID),
			cliui.NameStyle.Render(s.CopilotID),
			cliui.ValueStyle.Render(fmt.Sprintf("%d messages", s.MessageCount)),
			cliui.DimStyle.Render(s.CreatedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	return nil
}

func showSession(cmd *cobra.Command, store *history.Store, id string) error {
	msgs, err := store.Messages(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, m := range msgs {
		role := cliui.RoleStyle.Render(string(m.Role))
		if m.Role == chat.RoleError {
			role = cliui.WarnStyle.Render(string(m.Role))
		}
		fmt.Fprintf(out, "%s %s\n", role, utils.Truncate(m.Content, 400))
	}
	return nil
}
