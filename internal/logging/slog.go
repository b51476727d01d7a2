package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
)

// Attribute keys shared by every package that logs.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyMessageID = "message_id"
	KeyUserHash  = "user_hash"
	KeyDomain    = "user_domain"
	KeyDuration  = "duration"
	KeyError     = "error"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel converts a level name (debug, info, warn, error) into a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// New builds a logger writing to w with the given level and format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q, must be one of: text, json", format)
	}
	return slog.New(h), nil
}

// OrDefault returns logger, or slog.Default() when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// WithOperation returns logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(Operation(operation))
}

// WithService returns logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func MessageID(id string) slog.Attr { return slog.String(KeyMessageID, id) }

// Err returns the error attribute. A nil err yields an empty group, which
// handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// bareAddress reduces "Jane <jane@example.com>" to its lower-cased
// addr-spec. Input that does not parse is only trimmed and lower-cased.
func bareAddress(addr string) string {
	if a, err := mail.ParseAddress(addr); err == nil {
		addr = a.Address
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// anonymizeEmail returns "user:" followed by 16 hex characters of the
// SHA-256 of the bare address, so log lines can be correlated without the
// address itself. Empty input yields "".
func anonymizeEmail(addr string) string {
	addr = bareAddress(addr)
	if addr == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(addr))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash returns the anonymized address attribute. Addresses are only
// logged through UserHash and Domain.
func UserHash(addr string) slog.Attr {
	return slog.String(KeyUserHash, anonymizeEmail(addr))
}

// ExtractDomain returns the part after the @ of the bare address, or ""
// when there is not exactly one @.
func ExtractDomain(addr string) string {
	local, domain, ok := strings.Cut(bareAddress(addr), "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}

// Domain returns the address domain attribute.
func Domain(addr string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(addr))
}

// SanitizeToken describes a token by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
