package pos

import (
	"errors"
	"fmt"
)

// Terminal integration errors, surfaced to the user as actionable
// messages rather than retried.
var (
	// ErrCredentialExpired means the stored access token is past its
	// expiry timestamp. Refresh is a separate externally-triggered flow;
	// clients never refresh inline.
	ErrCredentialExpired = errors.New("pos: access token expired")
	// ErrIntegrationNotEnabled means the tenant has no enabled POS
	// connection.
	ErrIntegrationNotEnabled = errors.New("pos: integration not enabled")
)

// ProviderError is a non-2xx response from the provider API. The raw
// body is kept verbatim for the sync error report. Clients do not retry
// automatically; retry policy belongs to the caller.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("pos: provider returned %d: %s", e.StatusCode, e.Body)
}
