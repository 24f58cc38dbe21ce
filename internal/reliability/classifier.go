package reliability

// FailureKind buckets synthesis and storage failures for metrics labels and
// client status hints.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureCredential FailureKind = "credential"
	FailureTimeout    FailureKind = "timeout"
	FailureProvider   FailureKind = "provider"
	FailureStorage    FailureKind = "storage"
)

// Recoverable reports whether a later generation attempt can succeed without
// operator intervention. A missing or rejected credential is permanent until
// the deployment changes; everything else is transient.
func (k FailureKind) Recoverable() bool {
	return k != FailureCredential
}

// IsRetryableHTTPStatus classifies retryable provider HTTP status codes. The
// gateway itself never retries; the flag is surfaced on client error events.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
