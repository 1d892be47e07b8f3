package model

// OutcomeKind classifies a single fetch attempt.
type OutcomeKind int

const (
	// OutcomeSuccess means the server answered with a 2xx status.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryable means the failure is transient (429, 5xx, timeout, reset).
	OutcomeRetryable

	// OutcomeFatal means retrying cannot help (other 4xx, DNS, malformed response).
	OutcomeFatal
)

// String returns the lower-case name of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchOutcome is the result of one HTTP attempt.
// Body and StatusCode are meaningful for successes; Reason for failures.
// StatusCode is also kept for HTTP-level failures.
type FetchOutcome struct {
	Kind        OutcomeKind
	StatusCode  int
	Body        []byte
	ContentType string
	Reason      string
	Attempt     int
}

// Success builds a successful outcome.
func Success(statusCode int, body []byte, contentType string) FetchOutcome {
	return FetchOutcome{
		Kind:        OutcomeSuccess,
		StatusCode:  statusCode,
		Body:        body,
		ContentType: contentType,
	}
}

// Retryable builds a transient failure outcome.
func Retryable(statusCode int, reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeRetryable, StatusCode: statusCode, Reason: reason}
}

// Fatal builds a non-retryable failure outcome.
func Fatal(statusCode int, reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFatal, StatusCode: statusCode, Reason: reason}
}

// IsSuccess reports whether the outcome is a success.
func (o FetchOutcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}
