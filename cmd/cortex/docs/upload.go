package docscmder

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/cortex"
	"github.com/papercomputeco/cortex/pkg/docsync"
)

func newUploadCmd() *cobra.Command {
	var (
		documentID string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file as a document",
		Long: `Upload a file as a document. The document id defaults to the file name;
the source URL is the file's file:// URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newDocsCommander(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			path := args[0]
			if documentID == "" {
				documentID = filepath.Base(path)
			}

			var resp *cortex.UploadDocumentResponse
			err = cliui.Step(cmd.ErrOrStderr(), "Uploading "+documentID, func() error {
				var uploadErr error
				resp, uploadErr = uploadFile(cmd, c, path, documentID, tags)
				return uploadErr
			})
			if err != nil {
				return err
			}

			printDocument(cmd.OutOrStdout(), resp.Document, false)
			return nil
		},
	}

	addDocsFlags(cmd)
	cmd.Flags().StringVar(&documentID, "id", "", "Document id (defaults to the file name)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")

	return cmd
}

func uploadFile(cmd *cobra.Command, c *docsCommander, path, documentID string, tags []string) (*cortex.UploadDocumentResponse, error) {
	doc, err := docsync.ReadDocument(path, tags, time.Now())
	if err != nil {
		return nil, err
	}
	return c.client.UploadDocument(cmd.Context(), c.knowledge, documentID, doc)
}
