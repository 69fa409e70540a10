package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/cliui"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key",
		Long: `Set a config key in config.toml. List values such as events.brokers
are comma separated.

Examples:
  cortex config set client.user_id u_123
  cortex config set events.provider kafka
  cortex config set events.brokers kafka-1:9092,kafka-2:9092
  cortex config set sync.workers 8`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfger, err := open(cmd, key)
			if err != nil {
				return err
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTarget(out, cfger.GetTarget())
			fmt.Fprintf(out, "  %s %s = %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
			return nil
		},
	}
}

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Restore a config key to its default",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			if err := cfger.UnsetConfigValue(args[0]); err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTarget(out, cfger.GetTarget())
			printValue(out, args[0], value)
			fmt.Fprintln(out)
			return nil
		},
	}
}
