package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a config key",
		Long: `Print the effective value of a config key, defaults included.

Examples:
  cortex config get client.user_id
  cortex config get events.brokers`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := open(cmd, args[0])
			if err != nil {
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
