package docscmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/cliui"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newDocsCommander(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			return cliui.Step(cmd.ErrOrStderr(), "Deleting "+args[0], func() error {
				_, err := c.client.DeleteDocument(cmd.Context(), c.knowledge, args[0])
				return err
			})
		},
	}

	addDocsFlags(cmd)

	return cmd
}
