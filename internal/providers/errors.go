package providers

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced to callers. Transport and rate-limit
// failures are retried locally and only wrapped into these after the
// retry budget is spent.
var (
	// ErrNoNetwork means the connectivity precheck failed before any
	// provider call was attempted.
	ErrNoNetwork = errors.New("no network connectivity")

	// ErrNoAPIKey means the selected provider has no credential
	// configured. Raised before any network attempt.
	ErrNoAPIKey = errors.New("no API key configured")

	// ErrTimeout means every attempt exceeded the request timeout.
	ErrTimeout = errors.New("provider request timed out")

	// ErrMalformedResponse means a reply was received but no JSON
	// payload could be recovered from it. Never retried over the
	// network: the data arrived, only its shape was wrong.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is a terminal non-2xx provider status.
type ProviderError struct {
	Provider string
	Code     int
	Detail   string
}

func (e *ProviderError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s error (status %d)", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Detail)
}

// retryableStatus reports status codes retried on the cloud-A path.
func retryableStatus(code int) bool {
	return code == 503 || code == 504
}
