package endpoint

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Endpoint is a named API target. Name is its identity.
type Endpoint struct {
	Name    string
	BaseURL string
	Secret  string
}

// Eligible reports whether the endpoint carries enough configuration to be probed.
// Ineligible endpoints are treated as permanently unhealthy.
func (e Endpoint) Eligible() bool {
	return strings.TrimSpace(e.BaseURL) != "" && strings.TrimSpace(e.Secret) != ""
}

// Validate checks that the endpoint is complete and its base URL is usable.
func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.BaseURL, validation.Required, validation.By(validateBaseURL)),
		validation.Field(&e.Secret, validation.Required),
	)
}

// Redacted returns the secret with everything but its last four characters masked.
func (e Endpoint) Redacted() string {
	if len(e.Secret) <= 4 {
		return strings.Repeat("*", len(e.Secret))
	}
	return strings.Repeat("*", len(e.Secret)-4) + e.Secret[len(e.Secret)-4:]
}

func validateBaseURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
