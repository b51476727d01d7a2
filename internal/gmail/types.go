package gmail

// LabelUnread is the system label removed by Read.
const LabelUnread = "UNREAD"

// NormalizedMessage is a Gmail message reshaped into typed fields. Cc, Bcc
// and Attachments are omitted from JSON when empty; Body is omitted when no
// body was extracted.
type NormalizedMessage struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"threadId"`
	Labels      []string     `json:"labels"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc,omitempty"`
	Bcc         []string     `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Date        string       `json:"date"`
	Body        *string      `json:"body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// raw keeps the address headers as received for HeaderLines.
	raw rawAddressHeaders
}

type rawAddressHeaders struct {
	to, cc, bcc string
}

// Attachment describes a top-level attachment part.
type Attachment struct {
	Filename     string `json:"filename"`
	AttachmentID string `json:"attachmentId"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
}

// ListOptions selects the messages returned by List.
type ListOptions struct {
	// Query uses Gmail search syntax, e.g. "from:alice is:unread".
	Query string
	// MaxResults defaults to DefaultMaxResults.
	MaxResults int64
	// PageToken is the NextPageToken of a previous ListResult.
	PageToken string
}

// DefaultMaxResults is the page size used when ListOptions.MaxResults is unset.
const DefaultMaxResults = 10

// ListResult is one page of List output.
//
// NoResults is true, and Messages nil, when the query matched nothing. A page
// of messages that carry no headers still has NoResults false.
type ListResult struct {
	ResultSizeEstimate int64                `json:"resultSizeEstimate"`
	Shown              int                  `json:"shown"`
	Pages              int64                `json:"pages"`
	NextPageToken      string               `json:"nextPageToken,omitempty"`
	NoResults          bool                 `json:"noResults,omitempty"`
	Messages           []*NormalizedMessage `json:"messages,omitempty"`
}

// SentMessage identifies a message accepted by the send endpoint.
type SentMessage struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Labels   []string `json:"labels,omitempty"`
}
