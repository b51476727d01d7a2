package mail

import (
	"fmt"
	"strings"
)

// OutgoingMessage is the structured input of Build.
type OutgoingMessage struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	HTMLBody    string
	Attachments []string // file paths
}

// Validate checks that sender, at least one recipient and a subject are set.
func (m *OutgoingMessage) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	if len(nonEmpty(m.To)) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	return nil
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
