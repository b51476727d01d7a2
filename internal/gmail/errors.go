package gmail

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// APIError is returned when a Gmail endpoint does not answer with success.
// StatusCode is zero when no HTTP response was received.
type APIError struct {
	Op         string
	MessageID  string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	msg := "gmail " + e.Op
	if e.MessageID != "" {
		msg += " " + e.MessageID
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", msg, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", msg, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError wraps err with the operation context, lifting the status and
// body out of a *googleapi.Error.
func newAPIError(op, messageID string, err error) error {
	apiErr := &APIError{Op: op, MessageID: messageID, Err: err}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		apiErr.StatusCode = gerr.Code
		apiErr.Body = gerr.Body
	}
	return apiErr
}
