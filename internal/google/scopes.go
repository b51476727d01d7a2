package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes requested during authorization.
// https://mail.google.com/ grants full mailbox access, including send and
// permanent delete.
var DefaultOAuthScopes = []string{
	gmail.MailGoogleComScope,
}
