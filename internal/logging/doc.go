// Package logging provides structured logging utilities for gmailer.
//
// Loggers are plain *slog.Logger values built once by the CLI with New and
// passed down to the token store and the Gmail client. The helpers here keep
// attribute names consistent across packages.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "gmail.list")
//	logger.Info("listed messages", logging.MessageID(id), logging.Err(err))
//
// # Security Considerations
//
//   - Email addresses are logged only as UserHash and Domain attributes
//   - Tokens are never logged directly, only through SanitizeToken
package logging
