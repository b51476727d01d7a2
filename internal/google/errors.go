package google

import "fmt"

// TokenExchangeError is returned when the token endpoint rejects an
// authorization code or answers with an unexpected payload.
type TokenExchangeError struct {
	Err error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// TokenRefreshError is returned when the token endpoint rejects a refresh or
// answers with an unexpected payload. It is never retried internally.
type TokenRefreshError struct {
	Err error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *TokenRefreshError) Unwrap() error {
	return e.Err
}
