package google

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/gmailer/internal/config"
)

func TestAuthorizationURL(t *testing.T) {
	creds := config.Credentials{
		ClientID:     "client123",
		ClientSecret: "secret456",
		AuthURI:      config.DefaultAuthURI,
		TokenURI:     config.DefaultTokenURI,
	}

	raw := AuthorizationURL(creds, "http://127.0.0.1:8085/callback", "")
	require.True(t, strings.HasPrefix(raw, config.DefaultAuthURI+"?"), raw)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "client123", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:8085/callback", q.Get("redirect_uri"))
	assert.Equal(t, "https://mail.google.com/", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, DefaultState, q.Get("state"))
	assert.Empty(t, q.Get("client_secret"), "secret must never appear in the consent URL")

	assert.Equal(t, raw, AuthorizationURL(creds, "http://127.0.0.1:8085/callback", ""), "URL must be deterministic")
	assert.Contains(t, AuthorizationURL(creds, "urn:x", "xyz"), "state=xyz")
}

func TestExpiresIn(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int64
		wantErr bool
	}{
		{name: "json number", raw: map[string]any{"expires_in": float64(3599)}, want: 3599},
		{name: "form value", raw: url.Values{"expires_in": {"120"}}, want: 120},
		{name: "missing json", raw: map[string]any{}, wantErr: true},
		{name: "missing form", raw: url.Values{}, wantErr: true},
		{name: "wrong type", raw: map[string]any{"expires_in": true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(tt.raw)
			got, err := expiresIn(tok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthResult(t *testing.T) {
	assert.True(t, AuthResult{RedirectURL: "https://example.com"}.NeedsRedirect())
	assert.False(t, AuthResult{Authorized: true}.NeedsRedirect())
}
