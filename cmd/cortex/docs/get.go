package docscmder

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var showText bool

	cmd := &cobra.Command{
		Use:   "get <document-id>",
		Short: "Fetch a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newDocsCommander(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			resp, err := c.client.GetDocument(cmd.Context(), c.knowledge, args[0])
			if err != nil {
				return err
			}

			printDocument(cmd.OutOrStdout(), resp.Document, showText)
			return nil
		},
	}

	addDocsFlags(cmd)
	cmd.Flags().BoolVar(&showText, "text", false, "Print the document text")

	return cmd
}
