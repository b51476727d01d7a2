// Package google manages the OAuth2 token lifecycle for the Gmail API.
//
// TokenStore owns the client credentials and the current access/refresh token
// pair loaded from a config.Store. It refreshes the access token when it has
// expired, exchanges authorization codes during setup, and persists every
// token change back to the store.
//
// A token is VALID while now <= expiresAt and EXPIRED afterwards; the only
// transition is EXPIRED -> VALID through a refresh. expiresAt is always set to
// now + expires_in - 30 seconds when a token response is accepted.
//
// TokenStore also implements oauth2.TokenSource, so HTTPClient can hand out an
// *http.Client that adds the bearer token to every request.
package google
