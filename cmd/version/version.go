// Package versioncmder provides the version command.
package versioncmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/utils"
)

func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display the cortex version",
		Long:  "Display the version, commit and build time of this cortex binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := utils.Build()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "%s %s\n", cliui.NameStyle.Render("cortex"), info.Version)
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("commit"), info.Sha)
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("built "), info.Buildtime)
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("go    "), info.GoVersion)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the build info as JSON")

	return cmd
}
