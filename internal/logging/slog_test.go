package logging

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	logger.Debug("hidden")
	WithOperation(logger, "gmail.get").Info("shown", MessageID("18c2f"), Err(nil))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"operation":"gmail.get"`)
	assert.Contains(t, out, `"message_id":"18c2f"`)
	assert.NotContains(t, out, `"error"`)

	_, err = New(&buf, "info", "xml")
	assert.ErrorContains(t, err, "invalid log format")

	_, err = New(&buf, "chatty", FormatText)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestWithService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", FormatText)
	require.NoError(t, err)

	WithService(logger, "gmail").Debug("call", Err(errors.New("boom")))
	assert.Contains(t, buf.String(), "service=gmail")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Same(t, logger, OrDefault(logger))
}

func TestUserHash(t *testing.T) {
	hash := anonymizeEmail("jane@example.com")
	assert.Len(t, hash, len("user:")+16)
	assert.Regexp(t, `^user:[0-9a-f]{16}$`, hash)

	// Display names and case do not change the hash.
	assert.Equal(t, hash, anonymizeEmail("Jane Doe <Jane@Example.com>"))
	assert.Equal(t, hash, anonymizeEmail("  jane@example.com "))

	assert.NotEqual(t, hash, anonymizeEmail("john@example.com"))
	assert.Empty(t, anonymizeEmail(""))

	attr := UserHash("jane@example.com")
	assert.Equal(t, KeyUserHash, attr.Key)
	assert.Equal(t, hash, attr.Value.String())
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"jane@example.com", "example.com"},
		{"Jane <jane@Example.COM>", "example.com"},
		{"invalid", ""},
		{"", ""},
		{"@", ""},
		{"user@", ""},
		{"a@b@c", ""},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDomain(tt.addr))
		})
	}

	attr := Domain("jane@example.com")
	assert.Equal(t, KeyDomain, attr.Key)
	assert.Equal(t, "example.com", attr.Value.String())
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:6 chars]", SanitizeToken("abc123"))
	assert.Equal(t, "[token:24 chars]", SanitizeToken("a_very_long_token_string"))
}
