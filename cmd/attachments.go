package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailer/internal/gmail"
)

func newAttachmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "List and download message attachments",
	}
	cmd.AddCommand(newAttachmentsListCmd(a))
	cmd.AddCommand(newAttachmentsGetCmd(a))
	return cmd
}

func newAttachmentsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <message-id>",
		Short: "List the top-level attachments of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			atts, err := client.ListAttachments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if atts == nil {
				atts = []gmail.Attachment{}
			}
			return a.printJSON(atts)
		},
	}
}

func newAttachmentsGetCmd(a *app) *cobra.Command {
	var out, name string

	cmd := &cobra.Command{
		Use:   "get <message-id> <attachment>",
		Short: "Download an attachment",
		Long: `Download an attachment. <attachment> is the attachment's filename, its
zero-based position in "attachments list", or an attachment id.

Gmail issues new attachment ids on every fetch, so the attachment is looked
up again and downloaded under its current id. When --out is a directory the
file is named after --name or the attachment's filename, with path
separators replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, selector := args[0], args[1]

			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}

			atts, err := client.ListAttachments(cmd.Context(), messageID)
			if err != nil {
				return err
			}
			att, ok := selectAttachment(atts, selector)
			if !ok {
				// Not in the current listing; try it as an id.
				att = gmail.Attachment{AttachmentID: selector}
			}

			path := out
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				fileName := name
				if fileName == "" {
					fileName = att.Filename
				}
				path = filepath.Join(out, gmail.SanitizeFilename(fileName))
			}

			data, err := client.GetAttachment(cmd.Context(), messageID, att.AttachmentID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("failed to write attachment: %w", err)
			}

			return a.printJSON(map[string]any{"path": path, "size": len(data)})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", ".", "Output file or directory")
	cmd.Flags().StringVar(&name, "name", "", "File name to use when --out is a directory")

	return cmd
}

// selectAttachment finds an attachment by filename, then by position, then
// by id.
func selectAttachment(atts []gmail.Attachment, selector string) (gmail.Attachment, bool) {
	for _, att := range atts {
		if att.Filename == selector {
			return att, true
		}
	}
	if i, err := strconv.Atoi(selector); err == nil && i >= 0 && i < len(atts) {
		return atts[i], true
	}
	for _, att := range atts {
		if att.AttachmentID == selector {
			return att, true
		}
	}
	return gmail.Attachment{}, false
}
