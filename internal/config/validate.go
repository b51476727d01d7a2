package config

import (
	"net/url"
	"regexp"
	"strings"
)

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateClientID rejects empty or non-alphanumeric client ids.
func ValidateClientID(id string) error {
	return validateAlphanumeric("web.clientId", "client id", id)
}

// ValidateClientSecret rejects empty or non-alphanumeric client secrets.
func ValidateClientSecret(secret string) error {
	return validateAlphanumeric("web.clientSecret", "client secret", secret)
}

// ValidateAuthURI requires an absolute https URL.
func ValidateAuthURI(uri string) error {
	return validateHTTPSURL("web.authUri", uri)
}

// ValidateTokenURI requires an absolute https URL.
func ValidateTokenURI(uri string) error {
	return validateHTTPSURL("web.tokenUri", uri)
}

func validateAlphanumeric(field, name, value string) error {
	if value == "" {
		return &ConfigurationError{Field: field, Reason: name + " is required"}
	}
	if !alphanumeric.MatchString(value) {
		return &ConfigurationError{Field: field, Reason: "invalid " + name + ": only letters and digits are allowed"}
	}
	return nil
}

func validateHTTPSURL(field, value string) error {
	if !strings.HasPrefix(value, "https://") {
		return &ConfigurationError{Field: field, Reason: "uri must start with https://"}
	}
	u, err := url.Parse(value)
	if err != nil {
		return &ConfigurationError{Field: field, Reason: "invalid uri", Err: err}
	}
	if u.Host == "" || strings.ContainsAny(value, " \t\r\n") {
		return &ConfigurationError{Field: field, Reason: "invalid uri"}
	}
	return nil
}
