package configcmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every config key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := open(cmd, "")
			if err != nil {
				return err
			}

			values, err := cfger.Values()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				m := make(map[string]string, len(values))
				for _, kv := range values {
					m[kv[0]] = kv[1]
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}

			width := 0
			for _, kv := range values {
				width = max(width, len(kv[0]))
			}

			fmt.Fprintf(out, "# %s\n", cfger.GetTarget())
			for _, kv := range values {
				if kv[1] == "" {
					fmt.Fprintf(out, "%-*s = <not set>\n", width, kv[0])
					continue
				}
				fmt.Fprintf(out, "%-*s = %q\n", width, kv[0], kv[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a JSON object of key to value")

	return cmd
}
