package chat

// ErrorKind is the closed set of normalized failure categories a backend
// call can produce. Providers translate transport-specific failures into
// one of these before anything above the adapter boundary sees them;
// callers branch only on ErrorKind, never on raw transport detail.
type ErrorKind string

const (
	// ErrUnauthenticated - missing or rejected credential.
	ErrUnauthenticated ErrorKind = "unauthenticated"
	// ErrUnavailable - network failure, timeout, or 5xx from the backend.
	ErrUnavailable ErrorKind = "unavailable"
	// ErrRateLimited - the backend refused the call for quota reasons.
	ErrRateLimited ErrorKind = "rate_limited"
	// ErrInvalidResponse - the backend answered but the body was not usable.
	ErrInvalidResponse ErrorKind = "invalid_response"
	// ErrUnknown - anything that fits no other bucket.
	ErrUnknown ErrorKind = "unknown"
)

// Message returns the user-visible text for a failed response panel.
func (k ErrorKind) Message() string {
	switch k {
	case ErrUnauthenticated:
		return "This model is not configured. Please check the API credentials."
	case ErrRateLimited:
		return "This model is rate limited right now. Please try again shortly."
	case ErrUnavailable:
		return "This model did not respond. Please try again."
	case ErrInvalidResponse:
		return "This model returned an unreadable response."
	default:
		return "Something went wrong talking to this model."
	}
}
