package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/gmailer/internal/instrumentation"
	"github.com/teemow/gmailer/internal/logging"
	"github.com/teemow/gmailer/internal/mail"
)

const (
	// DefaultEndpoint is the base URL of the Gmail REST API.
	DefaultEndpoint = "https://www.googleapis.com/"

	// DefaultUploadEndpoint is the base URL for media uploads.
	DefaultUploadEndpoint = "https://www.googleapis.com/upload/"

	// DefaultQuotaUnitsPerSecond and DefaultQuotaBurst bound the per-user
	// quota units spent by a Client.
	DefaultQuotaUnitsPerSecond = 200
	DefaultQuotaBurst          = 250

	// MaxAttachmentSize is the largest attachment GetAttachment returns (25MB).
	MaxAttachmentSize = 25 * 1024 * 1024

	userID = "me"
)

// quotaUnits is the Gmail quota cost of each operation.
var quotaUnits = map[string]int{
	instrumentation.OperationList:          1,
	instrumentation.OperationGet:           5,
	instrumentation.OperationModify:        5,
	instrumentation.OperationGetAttachment: 5,
	instrumentation.OperationBatchDelete:   50,
	instrumentation.OperationSend:          100,
}

// Authenticator supplies credentials for Gmail calls. *google.TokenStore
// implements it.
type Authenticator interface {
	// EnsureValid refreshes the access token if it has expired.
	EnsureValid(ctx context.Context) error
	// HTTPClient returns a client that sends the bearer token.
	HTTPClient(base *http.Client) *http.Client
}

// Config configures a Client. The zero value talks to the public Gmail API.
type Config struct {
	Endpoint       string
	UploadEndpoint string

	// HTTPClient is the base transport; the bearer token is layered on top.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Builder *mail.Builder

	QuotaUnitsPerSecond float64
	QuotaBurst          int
}

// Client calls the Gmail API for the authorized user and reshapes the
// responses into NormalizedMessage values. Calls are sequential; List
// fetches each message after the list call returns.
type Client struct {
	svc            *gmail.UsersService
	httpClient     *http.Client
	uploadEndpoint string
	tokens         Authenticator
	builder        *mail.Builder
	limiter        *rate.Limiter
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// NewClient creates a Gmail client authenticated by tokens.
func NewClient(ctx context.Context, tokens Authenticator, cfg Config) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("gmail: authenticator is required")
	}

	endpoint := withTrailingSlash(cfg.Endpoint, DefaultEndpoint)
	uploadEndpoint := withTrailingSlash(cfg.UploadEndpoint, DefaultUploadEndpoint)

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 60 * time.Second}
	}
	httpClient := tokens.HTTPClient(base)

	svc, err := gmail.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	perSecond := cfg.QuotaUnitsPerSecond
	if perSecond <= 0 {
		perSecond = DefaultQuotaUnitsPerSecond
	}
	burst := cfg.QuotaBurst
	if burst <= 0 {
		burst = DefaultQuotaBurst
	}

	logger := logging.WithService(logging.OrDefault(cfg.Logger), instrumentation.ServiceGmail)

	builder := cfg.Builder
	if builder == nil {
		builder = mail.NewBuilder(logger, cfg.Metrics)
	}

	return &Client{
		svc:            svc.Users,
		httpClient:     httpClient,
		uploadEndpoint: uploadEndpoint,
		tokens:         tokens,
		builder:        builder,
		limiter:        rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:         logger,
		metrics:        cfg.Metrics,
	}, nil
}

func withTrailingSlash(v, def string) string {
	if v == "" {
		return def
	}
	if !strings.HasSuffix(v, "/") {
		v += "/"
	}
	return v
}

// call runs one authenticated Gmail request. The token is checked before the
// quota wait. Token and quota errors are prefixed with the operation and
// message id; fn's error is wrapped in an APIError.
func (c *Client) call(ctx context.Context, op, messageID string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) (err error) {
	attrs = append(attrs, instrumentation.NewSpanAttributeBuilder().WithMessageID(messageID).Build()...)
	ctx, span := instrumentation.StartCallSpan(ctx, instrumentation.ServiceGmail, op, attrs...)

	start := time.Now()
	defer func() {
		duration := time.Since(start)
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			c.logger.WarnContext(ctx, "gmail call failed",
				logging.Operation(op),
				logging.MessageID(messageID),
				slog.Duration(logging.KeyDuration, duration),
				slog.String("trace_id", instrumentation.TraceID(ctx)),
				logging.Err(err))
		} else {
			c.logger.DebugContext(ctx, "gmail call completed",
				logging.Operation(op),
				logging.MessageID(messageID),
				slog.Duration(logging.KeyDuration, duration))
		}
		c.metrics.RecordGmailOperation(ctx, op, status, duration)
		instrumentation.EndSpan(span, err)
	}()

	if err := c.tokens.EnsureValid(ctx); err != nil {
		return fmt.Errorf("%s: %w", callName(op, messageID), err)
	}
	if err := c.limiter.WaitN(ctx, quotaUnits[op]); err != nil {
		return fmt.Errorf("%s: waiting for quota: %w", callName(op, messageID), err)
	}
	if err := fn(ctx); err != nil {
		return newAPIError(op, messageID, err)
	}
	return nil
}

func callName(op, messageID string) string {
	if messageID == "" {
		return "gmail " + op
	}
	return "gmail " + op + " " + messageID
}

// Send builds msg and submits it through the media upload endpoint as a raw
// message/rfc822 body. Build errors are returned before any request is made.
func (c *Client) Send(ctx context.Context, msg *mail.OutgoingMessage) (*SentMessage, error) {
	raw, err := c.builder.Build(ctx, msg)
	if err != nil {
		return nil, err
	}

	sendURL := c.uploadEndpoint + "gmail/v1/users/" + userID + "/messages/send?uploadType=media"

	var sent gmail.Message
	err = c.call(ctx, instrumentation.OperationSend, "", nil, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "message/rfc822")

		res, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = res.Body.Close() }()

		if err := googleapi.CheckResponse(res); err != nil {
			return err
		}
		return json.NewDecoder(res.Body).Decode(&sent)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "message sent",
		logging.MessageID(sent.Id),
		logging.UserHash(msg.From),
		logging.Domain(msg.From),
		slog.Int("recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)))

	return &SentMessage{
		ID:       sent.Id,
		ThreadID: sent.ThreadId,
		Labels:   sent.LabelIds,
	}, nil
}

// List returns one page of messages matching opts.Query with their headers.
// Each listed id is fetched in turn with the metadata format.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var res *gmail.ListMessagesResponse
	err := c.call(ctx, instrumentation.OperationList, "", nil, func(ctx context.Context) error {
		req := c.svc.Messages.List(userID).MaxResults(maxResults).Context(ctx)
		if opts.Query != "" {
			req = req.Q(opts.Query)
		}
		if opts.PageToken != "" {
			req = req.PageToken(opts.PageToken)
		}
		var err error
		res, err = req.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &ListResult{
		ResultSizeEstimate: res.ResultSizeEstimate,
		Pages:              pageCount(res.ResultSizeEstimate, maxResults),
		NextPageToken:      res.NextPageToken,
	}
	if len(res.Messages) == 0 {
		out.NoResults = true
		return out, nil
	}

	out.Messages = make([]*NormalizedMessage, 0, len(res.Messages))
	for _, m := range res.Messages {
		msg, err := c.fetch(ctx, m.Id, "metadata")
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, normalize(msg, false))
	}
	out.Shown = len(out.Messages)

	return out, nil
}

func pageCount(total, perPage int64) int64 {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Get fetches a message with its body and top-level attachments.
func (c *Client) Get(ctx context.Context, id string) (*NormalizedMessage, error) {
	msg, err := c.fetch(ctx, id, "full")
	if err != nil {
		return nil, err
	}
	return normalize(msg, true), nil
}

// Read is Get followed by marking the message read: when the message carries
// UNREAD, the label is removed on the server and from the returned labels.
func (c *Client) Read(ctx context.Context, id string) (*NormalizedMessage, error) {
	n, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.HasLabel(LabelUnread) {
		return n, nil
	}

	if _, err := c.modify(ctx, id, nil, []string{LabelUnread}); err != nil {
		return nil, err
	}
	n.removeLabel(LabelUnread)

	return n, nil
}

// Update adds and removes labels on a message and returns its resulting labels.
func (c *Client) Update(ctx context.Context, id string, add, remove []string) ([]string, error) {
	if id == "" {
		return nil, errors.New("message id is required")
	}
	msg, err := c.modify(ctx, id, add, remove)
	if err != nil {
		return nil, err
	}
	return uniqueLabels(msg.LabelIds), nil
}

// Delete permanently deletes the given messages in one batch request.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return errors.New("at least one message id is required")
	}

	attrs := instrumentation.NewSpanAttributeBuilder().WithMessageCount(len(ids)).Build()
	return c.call(ctx, instrumentation.OperationBatchDelete, "", attrs, func(ctx context.Context) error {
		return c.svc.Messages.BatchDelete(userID, &gmail.BatchDeleteMessagesRequest{Ids: ids}).Context(ctx).Do()
	})
}

func (c *Client) fetch(ctx context.Context, id, format string) (*gmail.Message, error) {
	if id == "" {
		return nil, errors.New("message id is required")
	}

	var msg *gmail.Message
	err := c.call(ctx, instrumentation.OperationGet, id, nil, func(ctx context.Context) error {
		req := c.svc.Messages.Get(userID, id).Format(format).Context(ctx)
		if format == "metadata" {
			req = req.MetadataHeaders(normalizedHeaders...)
		}
		var err error
		msg, err = req.Do()
		return err
	})
	return msg, err
}

func (c *Client) modify(ctx context.Context, id string, add, remove []string) (*gmail.Message, error) {
	var msg *gmail.Message
	err := c.call(ctx, instrumentation.OperationModify, id, nil, func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Messages.Modify(userID, id, &gmail.ModifyMessageRequest{
			AddLabelIds:    add,
			RemoveLabelIds: remove,
		}).Context(ctx).Do()
		return err
	})
	return msg, err
}
