package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/teemow/gmailer/internal/config"
)

// DefaultState is the state parameter sent when the caller supplies none.
const DefaultState = "state_parameter_passthrough_value"

// expirySkew is subtracted from expires_in when computing expiresAt.
const expirySkew = 30

// AuthResult is the outcome of Authorize: either the user must be sent to
// RedirectURL, or the code was exchanged and the store is Authorized.
type AuthResult struct {
	RedirectURL string
	Authorized  bool
}

// NeedsRedirect reports whether the user must visit RedirectURL first.
func (r AuthResult) NeedsRedirect() bool {
	return r.RedirectURL != ""
}

// AuthorizationURL builds the consent URL for creds. It has no side effects.
// An empty state is replaced by DefaultState.
func AuthorizationURL(creds config.Credentials, redirectURI, state string) string {
	if state == "" {
		state = DefaultState
	}
	return oauthConfig(creds, redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// oauthConfig maps persisted credentials onto an oauth2.Config. Client
// credentials travel in the form body, as the token endpoint expects.
func oauthConfig(creds config.Credentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   creds.AuthURI,
			TokenURL:  creds.TokenURI,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      DefaultOAuthScopes,
	}
}

// expiresIn reads the raw expires_in field of a token response. The oauth2
// package exposes it as float64 for JSON bodies and int64 or string for form
// encoded ones.
func expiresIn(tok *oauth2.Token) (int64, error) {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		if v == "" {
			return 0, errors.New("token response is missing expires_in")
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expires_in %q: %w", v, err)
		}
		return n, nil
	case nil:
		return 0, errors.New("token response is missing expires_in")
	default:
		return 0, fmt.Errorf("unexpected expires_in type %T", v)
	}
}
