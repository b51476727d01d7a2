package gmail

import (
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Header names copied into a NormalizedMessage, in HeaderLines order.
var normalizedHeaders = []string{"From", "To", "Cc", "Bcc", "Subject", "Date"}

// normalize reshapes a raw Gmail message. Body and attachments are only
// extracted when withContent is set; list results carry headers only.
func normalize(msg *gmail.Message, withContent bool) *NormalizedMessage {
	n := &NormalizedMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Labels:   uniqueLabels(msg.LabelIds),
		To:       []string{},
	}

	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	n.raw = rawAddressHeaders{
		to:  header(headers, "To"),
		cc:  header(headers, "Cc"),
		bcc: header(headers, "Bcc"),
	}

	n.From = header(headers, "From")
	if to := splitAddresses(n.raw.to); len(to) > 0 {
		n.To = to
	}
	n.Cc = splitAddresses(n.raw.cc)
	n.Bcc = splitAddresses(n.raw.bcc)
	n.Subject = header(headers, "Subject")
	n.Date = header(headers, "Date")

	if withContent && msg.Payload != nil {
		n.Body = extractBody(msg.Payload)
		n.Attachments = topLevelAttachments(msg.Payload)
	}

	return n
}

// HeaderLines renders the message headers back into RFC 822 header lines.
// Address lists read from Gmail are emitted exactly as received; lists set
// by hand are joined with ", ". Cc and Bcc lines are only emitted when
// non-empty.
func (m *NormalizedMessage) HeaderLines() []string {
	lines := []string{"From: " + m.From, "To: " + addressLine(m.raw.to, m.To)}
	if len(m.Cc) > 0 {
		lines = append(lines, "Cc: "+addressLine(m.raw.cc, m.Cc))
	}
	if len(m.Bcc) > 0 {
		lines = append(lines, "Bcc: "+addressLine(m.raw.bcc, m.Bcc))
	}
	return append(lines, "Subject: "+m.Subject, "Date: "+m.Date)
}

// addressLine prefers the received header value while it still splits into
// the same addresses.
func addressLine(raw string, addrs []string) string {
	if raw != "" && slices.Equal(splitAddresses(raw), addrs) {
		return raw
	}
	return strings.Join(addrs, ", ")
}

// HasLabel reports whether the message carries label.
func (m *NormalizedMessage) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (m *NormalizedMessage) removeLabel(label string) {
	out := m.Labels[:0]
	for _, l := range m.Labels {
		if l != label {
			out = append(out, l)
		}
	}
	m.Labels = out
}

// header returns the first header named name, compared case-insensitively.
func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func uniqueLabels(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// splitAddresses splits an address list on commas that are outside quoted
// strings, comments and angle brackets. Each address is kept verbatim apart
// from surrounding whitespace. It returns nil for an empty list.
func splitAddresses(v string) []string {
	var (
		out     []string
		start   int
		quoted  bool
		escaped bool
		angle   int
		comment int
	)
	for i, r := range v {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && (quoted || comment > 0):
			escaped = true
		case r == '"' && comment == 0:
			quoted = !quoted
		case quoted:
		case r == '(':
			comment++
		case r == ')' && comment > 0:
			comment--
		case r == '<' && comment == 0:
			angle++
		case r == '>' && angle > 0 && comment == 0:
			angle--
		case r == ',' && angle == 0 && comment == 0:
			if s := strings.TrimSpace(v[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(v[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// topLevelAttachments lists the immediate parts that carry both a filename
// and an attachment id.
func topLevelAttachments(payload *gmail.MessagePart) []Attachment {
	var out []Attachment
	for _, part := range payload.Parts {
		if part == nil || part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}
		out = append(out, Attachment{
			Filename:     part.Filename,
			AttachmentID: part.Body.AttachmentId,
			Size:         part.Body.Size,
			ContentType:  part.MimeType,
		})
	}
	return out
}
