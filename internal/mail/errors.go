package mail

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage is wrapped by validation failures of an OutgoingMessage.
var ErrInvalidMessage = errors.New("invalid message")

// AttachmentReadError is returned when an attachment path exists but cannot
// be read.
type AttachmentReadError struct {
	Path string
	Err  error
}

func (e *AttachmentReadError) Error() string {
	return fmt.Sprintf("failed to read attachment %s: %v", e.Path, e.Err)
}

func (e *AttachmentReadError) Unwrap() error {
	return e.Err
}
