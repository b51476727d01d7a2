package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/gmailer/internal/config"
	"github.com/teemow/gmailer/internal/instrumentation"
	"github.com/teemow/gmailer/internal/logging"
)

const defaultHTTPTimeout = 30 * time.Second

// TokenStore holds the OAuth credentials and token state for one Gmail
// account. All token mutations are serialized by an internal mutex and
// persisted through the config.Store.
type TokenStore struct {
	store      config.Store
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	now        func() time.Time

	mu  sync.Mutex
	doc *config.Document
}

// Option configures a TokenStore.
type Option func(*TokenStore)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(s *TokenStore) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *TokenStore) {
		s.logger = logging.OrDefault(l)
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *TokenStore) {
		s.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TokenStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenStore loads the configuration from store and validates the
// credentials. Invalid credentials fail with a *config.ConfigurationError
// before any network call is made.
func NewTokenStore(ctx context.Context, store config.Store, opts ...Option) (*TokenStore, error) {
	s := &TokenStore{
		store:      store,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	doc, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	s.doc = doc

	return s, nil
}

// Credentials returns the OAuth client identity.
func (s *TokenStore) Credentials() config.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Web
}

// ExpiresAt returns the access token expiry as a unix timestamp.
func (s *TokenStore) ExpiresAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ExpiresAt
}

// Authorized reports whether a refresh token is present.
func (s *TokenStore) Authorized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HasToken()
}

// EnsureValid refreshes the access token if now > expiresAt and is a no-op
// otherwise. Callers that waited on a concurrent refresh see the new expiry
// and do not refresh again.
func (s *TokenStore) EnsureValid(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expiredLocked() {
		return nil
	}
	return s.refreshLocked(ctx)
}

// Refresh unconditionally exchanges the refresh token for a new access token.
func (s *TokenStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// Token returns the current access token without refreshing it. It
// implements oauth2.TokenSource.
func (s *TokenStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.AccessToken == "" {
		return nil, &config.ConfigurationError{Field: "accessToken", Reason: "no access token; run `gmailer auth login`"}
	}
	return &oauth2.Token{
		AccessToken:  s.doc.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: s.doc.RefreshToken,
		Expiry:       time.Unix(s.doc.ExpiresAt, 0),
	}, nil
}

// HTTPClient returns a client that sends the current access token as a
// bearer credential. Requests go through base's transport.
func (s *TokenStore) HTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: s,
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}
}

// AuthorizationURL builds the consent URL for this store's credentials.
func (s *TokenStore) AuthorizationURL(redirectURI, state string) string {
	return AuthorizationURL(s.Credentials(), redirectURI, state)
}

// Authorize drives the interactive setup. Without a code it returns the URL
// the user must visit; with a code it exchanges it and reports Authorized.
func (s *TokenStore) Authorize(ctx context.Context, code, redirectURI, state string) (AuthResult, error) {
	if code == "" {
		return AuthResult{RedirectURL: s.AuthorizationURL(redirectURI, state)}, nil
	}
	if err := s.ExchangeAuthorizationCode(ctx, code, redirectURI); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Authorized: true}, nil
}

// ExchangeAuthorizationCode trades an authorization code for an access and
// refresh token, stores both and persists them. The response must carry
// access_token, refresh_token and expires_in.
func (s *TokenStore) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	ctx, span := instrumentation.StartCallSpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationExchange,
		instrumentation.NewSpanAttributeBuilder().WithGrantType("authorization_code").Build()...)
	defer func() {
		result := instrumentation.OAuthResultSuccess
		if err != nil {
			result = instrumentation.OAuthResultFailure
		}
		s.metrics.RecordOAuthCodeExchange(ctx, result)
		instrumentation.EndSpan(span, err)
	}()

	if code == "" {
		return &TokenExchangeError{Err: errors.New("authorization code is empty")}
	}

	tok, err := oauthConfig(s.doc.Web, redirectURI).Exchange(s.clientContext(ctx), code)
	if err != nil {
		return &TokenExchangeError{Err: err}
	}
	if tok.RefreshToken == "" {
		return &TokenExchangeError{Err: errors.New("token response is missing refresh_token")}
	}
	ttl, err := expiresIn(tok)
	if err != nil {
		return &TokenExchangeError{Err: err}
	}

	next := s.doc.Clone()
	next.AccessToken = tok.AccessToken
	next.RefreshToken = tok.RefreshToken
	next.ExpiresAt = start.Unix() + ttl - expirySkew
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}

	s.logger.Info("authorization code exchanged",
		logging.Operation("oauth.exchange"),
		slog.Int64("expires_at", next.ExpiresAt),
		slog.String("refresh_token", logging.SanitizeToken(next.RefreshToken)),
	)
	return nil
}

func (s *TokenStore) expiredLocked() bool {
	return s.now().Unix() > s.doc.ExpiresAt
}

func (s *TokenStore) refreshLocked(ctx context.Context) (err error) {
	if s.doc.RefreshToken == "" {
		return &config.ConfigurationError{Field: "refreshToken", Reason: "not authorized; run `gmailer auth login`"}
	}

	start := s.now()
	ctx, span := instrumentation.StartCallSpan(ctx, instrumentation.ServiceOAuth, instrumentation.OperationRefresh,
		instrumentation.NewSpanAttributeBuilder().WithGrantType("refresh_token").Build()...)
	defer func() {
		result := instrumentation.OAuthResultSuccess
		if err != nil {
			result = instrumentation.OAuthResultFailure
		}
		s.metrics.RecordOAuthTokenRefresh(ctx, result)
		instrumentation.EndSpan(span, err)
	}()

	s.logger.Debug("refreshing access token",
		logging.Operation("oauth.refresh"),
		slog.Int64("expired_at", s.doc.ExpiresAt),
	)

	// Only the refresh token is passed so the source always hits the endpoint.
	src := oauthConfig(s.doc.Web, "").TokenSource(s.clientContext(ctx), &oauth2.Token{
		RefreshToken: s.doc.RefreshToken,
	})
	tok, err := src.Token()
	if err != nil {
		return &TokenRefreshError{Err: err}
	}
	ttl, err := expiresIn(tok)
	if err != nil {
		return &TokenRefreshError{Err: err}
	}

	// A refresh_token in the response is ignored; the stored one is kept.
	next := s.doc.Clone()
	next.AccessToken = tok.AccessToken
	next.ExpiresAt = start.Unix() + ttl - expirySkew
	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}

	instrumentation.AddSpanEvent(span, "token.refreshed")
	s.logger.Info("access token refreshed",
		logging.Operation("oauth.refresh"),
		slog.Int64("expires_at", next.ExpiresAt),
		slog.String("access_token", logging.SanitizeToken(next.AccessToken)),
	)
	return nil
}

// persistLocked adopts next as the in-memory state and saves it. The new
// token is kept even if saving fails.
func (s *TokenStore) persistLocked(ctx context.Context, next *config.Document) error {
	s.doc = next
	if err := s.store.Save(ctx, next.Clone()); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

func (s *TokenStore) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
