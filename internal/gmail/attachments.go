package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmailer/internal/instrumentation"
)

// ListAttachments returns the top-level attachments of a message. Attachments
// nested inside multipart/alternative or forwarded messages are not listed.
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]Attachment, error) {
	msg, err := c.fetch(ctx, messageID, "full")
	if err != nil {
		return nil, err
	}
	if msg.Payload == nil {
		return nil, nil
	}
	return topLevelAttachments(msg.Payload), nil
}

// GetAttachment downloads and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, errors.New("message id is required")
	}
	if attachmentID == "" {
		return nil, errors.New("attachment id is required")
	}

	var body *gmail.MessagePartBody
	err := c.call(ctx, instrumentation.OperationGetAttachment, messageID, nil, func(ctx context.Context) error {
		var err error
		body, err = c.svc.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	if body.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", body.Size, MaxAttachmentSize)
	}

	data, err := decodeData(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_", "\x00", "")

// SanitizeFilename turns an attachment filename into a single path element.
// Separators and ".." become "_"; a name that ends up empty or "." is
// replaced with "attachment".
func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filenameReplacer.Replace(filename))
	if filename == "" || filename == "." {
		return "attachment"
	}
	return filename
}
