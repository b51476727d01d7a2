package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	gmail "google.golang.org/api/gmail/v1"
)

// extractBody returns the message text, or nil when there is none. A
// single-part payload uses its own body if it is text/plain or text/html.
// Otherwise only the immediate parts are scanned: text/plain wins,
// text/html is the fallback.
func extractBody(payload *gmail.MessagePart) *string {
	if len(payload.Parts) == 0 {
		switch mediaType(payload.MimeType) {
		case "text/plain", "text/html":
			return partText(payload)
		}
		return nil
	}

	for _, part := range payload.Parts {
		if part != nil && mediaType(part.MimeType) == "text/plain" {
			if text := partText(part); text != nil {
				return text
			}
		}
	}
	for _, part := range payload.Parts {
		if part != nil && mediaType(part.MimeType) == "text/html" {
			if text := partText(part); text != nil {
				return text
			}
		}
	}
	return nil
}

// partText decodes the inline body data of a part, converting HTML to text.
func partText(part *gmail.MessagePart) *string {
	if part.Body == nil || part.Body.Data == "" {
		return nil
	}
	data, err := decodeData(part.Body.Data)
	if err != nil {
		return nil
	}

	text := string(data)
	if mediaType(part.MimeType) == "text/html" {
		text = htmlToText(text)
	}
	return &text
}

func mediaType(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// decodeData decodes Gmail body data. The API uses base64url, with or
// without padding; standard base64 is accepted as well.
func decodeData(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(s)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// blockElements start a new line in the text rendering.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "div": true,
	"dl": true, "dt": true, "dd": true, "footer": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// htmlToText strips tags from an HTML document, dropping script and style
// content and keeping a line break for each block element.
func htmlToText(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))

	var (
		sb   strings.Builder
		skip int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return tidyText(sb.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if blockElements[tag] {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blockElements[tag] {
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
