package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailer/internal/gmail"
	"github.com/teemow/gmailer/internal/mail"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		msg      mail.OutgoingMessage
		bodyFile string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an HTML message",
		Long: `Send an HTML message with optional attachments. Attachment paths that do
not exist are skipped with a warning; existing files that cannot be read
abort the send.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bodyFile != "" {
				if cmd.Flags().Changed("body") {
					return fmt.Errorf("--body and --body-file are mutually exclusive")
				}
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("failed to read body file: %w", err)
				}
				msg.HTMLBody = string(data)
			}

			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			sent, err := client.Send(cmd.Context(), &msg)
			if err != nil {
				return err
			}
			return a.printJSON(sent)
		},
	}

	cmd.Flags().StringVar(&msg.From, "from", "", "Sender address (required)")
	cmd.Flags().StringSliceVar(&msg.To, "to", nil, "Recipient addresses (required, repeatable)")
	cmd.Flags().StringSliceVar(&msg.Cc, "cc", nil, "Cc addresses")
	cmd.Flags().StringSliceVar(&msg.Bcc, "bcc", nil, "Bcc addresses")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "Subject line (required)")
	cmd.Flags().StringVar(&msg.HTMLBody, "body", "", "HTML body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the HTML body from this file")
	cmd.Flags().StringSliceVar(&msg.Attachments, "attach", nil, "Files to attach (repeatable)")

	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var opts gmail.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages matching a Gmail search query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Gmail search query, e.g. \"is:unread from:alice\"")
	cmd.Flags().Int64Var(&opts.MaxResults, "max", gmail.DefaultMaxResults, "Messages per page")
	cmd.Flags().StringVar(&opts.PageToken, "page-token", "", "nextPageToken of a previous page")

	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show a message without changing its labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(msg)
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <message-id>",
		Short: "Show a message and mark it as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := client.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(msg)
		},
	}
}

func newLabelsCmd(a *app) *cobra.Command {
	var add, remove []string

	cmd := &cobra.Command{
		Use:   "labels <message-id>",
		Short: "Add or remove labels on a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(add) == 0 && len(remove) == 0 {
				return fmt.Errorf("at least one of --add or --remove is required")
			}
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			labels, err := client.Update(cmd.Context(), args[0], add, remove)
			if err != nil {
				return err
			}
			return a.printJSON(map[string]any{"id": args[0], "labels": labels})
		},
	}

	cmd.Flags().StringSliceVar(&add, "add", nil, "Label ids to add, e.g. STARRED")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Label ids to remove, e.g. INBOX")

	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <message-id>...",
		Short: "Permanently delete messages",
		Long:  "Permanently delete messages. This bypasses the trash and cannot be undone.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.gmailClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args); err != nil {
				return err
			}
			return a.printJSON(map[string]any{"deleted": args})
		},
	}
}
