package config

// Default OAuth endpoints for Google accounts.
const (
	DefaultAuthURI  = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURI = "https://accounts.google.com/o/oauth2/token"
)

// Credentials is the static OAuth application identity.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	AuthURI      string `json:"authUri"`
	TokenURI     string `json:"tokenUri"`
}

// Document is the persisted configuration: credentials plus token state.
type Document struct {
	Web Credentials `json:"web"`

	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	// ExpiresAt is a unix timestamp in seconds.
	ExpiresAt int64 `json:"expiresAt,omitempty"`
}

// Clone returns a copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// HasToken reports whether the document carries a refresh token.
func (d *Document) HasToken() bool {
	return d != nil && d.RefreshToken != ""
}

// Validate checks the credentials. It returns a *ConfigurationError naming
// the first invalid field.
func (d *Document) Validate() error {
	if d == nil {
		return &ConfigurationError{Reason: "configuration is missing"}
	}
	return d.Web.Validate()
}

// Validate checks each credential field.
func (c Credentials) Validate() error {
	if err := ValidateClientID(c.ClientID); err != nil {
		return err
	}
	if err := ValidateClientSecret(c.ClientSecret); err != nil {
		return err
	}
	if err := ValidateAuthURI(c.AuthURI); err != nil {
		return err
	}
	return ValidateTokenURI(c.TokenURI)
}
