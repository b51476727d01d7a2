package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/teemow/gmailer/internal/instrumentation"
	"github.com/teemow/gmailer/internal/logging"
)

const (
	crlf = "\r\n"

	// base64LineLength is the conventional MIME line width for base64 bodies.
	base64LineLength = 76
)

// Builder assembles RFC 822 messages. The zero value is not usable; use
// NewBuilder.
type Builder struct {
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	newBoundary func() string
}

// NewBuilder returns a Builder. Both arguments may be nil.
func NewBuilder(logger *slog.Logger, metrics *instrumentation.Metrics) *Builder {
	return &Builder{
		logger:      logging.OrDefault(logger),
		metrics:     metrics,
		newBoundary: randomBoundary,
	}
}

func randomBoundary() string {
	return "boundary_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type attachment struct {
	name        string
	contentType string
	data        []byte
}

// Build renders msg as a multipart/mixed RFC 822 message with CRLF line
// endings, ready to be posted as message/rfc822.
func (b *Builder) Build(ctx context.Context, msg *OutgoingMessage) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	attachments, err := b.loadAttachments(ctx, msg.Attachments)
	if err != nil {
		return nil, err
	}

	boundary := b.newBoundary()
	for strings.Contains(msg.HTMLBody, boundary) {
		boundary = b.newBoundary()
	}

	var sb strings.Builder

	writeHeader(&sb, "From", msg.From)
	writeHeader(&sb, "To", strings.Join(nonEmpty(msg.To), ", "))
	writeHeader(&sb, "Subject", encodeRFC2047(msg.Subject))
	if cc := nonEmpty(msg.Cc); len(cc) > 0 {
		writeHeader(&sb, "Cc", strings.Join(cc, ", "))
	}
	if bcc := nonEmpty(msg.Bcc); len(bcc) > 0 {
		writeHeader(&sb, "Bcc", strings.Join(bcc, ", "))
	}
	writeHeader(&sb, "MIME-Version", "1.0")
	writeHeader(&sb, "Content-Type", `multipart/mixed; boundary="`+boundary+`"`)
	sb.WriteString(crlf)

	// HTML body
	sb.WriteString("--" + boundary + crlf)
	writeHeader(&sb, "Content-Type", `text/html; charset="UTF-8"`)
	writeHeader(&sb, "Content-Transfer-Encoding", "7bit")
	sb.WriteString(crlf)
	sb.WriteString(msg.HTMLBody)
	sb.WriteString(crlf)

	for _, a := range attachments {
		name := quoteParam(a.name)
		sb.WriteString("--" + boundary + crlf)
		writeHeader(&sb, "Content-Type", a.contentType+`; name="`+name+`"`)
		writeHeader(&sb, "Content-Description", a.name)
		writeHeader(&sb, "Content-Disposition", `attachment; filename="`+name+`"; size=`+strconv.Itoa(len(a.data)))
		writeHeader(&sb, "Content-Transfer-Encoding", "base64")
		sb.WriteString(crlf)
		writeBase64(&sb, a.data)
	}

	sb.WriteString("--" + boundary + "--")

	return []byte(sb.String()), nil
}

// loadAttachments reads every existing path. Missing paths are skipped.
func (b *Builder) loadAttachments(ctx context.Context, paths []string) ([]attachment, error) {
	var out []attachment
	for _, path := range paths {
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("skipping missing attachment", slog.String("path", path))
			b.metrics.RecordAttachmentSkipped(ctx)
			continue
		}
		if err != nil {
			return nil, &AttachmentReadError{Path: path, Err: err}
		}
		if info.IsDir() {
			return nil, &AttachmentReadError{Path: path, Err: errors.New("is a directory")}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &AttachmentReadError{Path: path, Err: err}
		}

		name := filepath.Base(path)
		out = append(out, attachment{
			name:        name,
			contentType: detectContentType(name, data),
			data:        data,
		})
	}
	return out, nil
}

// detectContentType guesses from the extension first and sniffs the content
// otherwise. Parameters such as charset are dropped.
func detectContentType(name string, data []byte) string {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return "application/octet-stream"
}

func writeHeader(sb *strings.Builder, name, value string) {
	sb.WriteString(name)
	sb.WriteString(": ")
	sb.WriteString(sanitizeHeaderValue(value))
	sb.WriteString(crlf)
}

// sanitizeHeaderValue folds any CR or LF into a space so values cannot
// inject extra headers.
func sanitizeHeaderValue(v string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, v)
}

func quoteParam(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}

func writeBase64(sb *strings.Builder, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > base64LineLength {
		sb.WriteString(encoded[:base64LineLength])
		sb.WriteString(crlf)
		encoded = encoded[base64LineLength:]
	}
	sb.WriteString(encoded)
	sb.WriteString(crlf)
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
