package model

// Status is the terminal state of a record.
type Status string

const (
	// StatusOK means the page was fetched and parsed.
	StatusOK Status = "ok"

	// StatusFailed means the task ended in a failure; see FailureKind.
	StatusFailed Status = "failed"

	// StatusCancelled means the task was skipped because of a stop request.
	StatusCancelled Status = "cancelled"
)

// FailureKind refines StatusFailed and StatusCancelled records.
type FailureKind string

const (
	// FailureNone is used for successful records.
	FailureNone FailureKind = ""

	// FailureValidation means the input URL was malformed or off-domain.
	FailureValidation FailureKind = "validation"

	// FailureFatal means a non-retryable HTTP or client error.
	FailureFatal FailureKind = "fatal"

	// FailureRetriesExhausted means every attempt hit a transient failure.
	FailureRetriesExhausted FailureKind = "retries_exhausted"

	// FailureNotFound means the page was fetched but marks the product unavailable.
	FailureNotFound FailureKind = "not_found"

	// FailureCancelled means the task never started because of a stop request.
	FailureCancelled FailureKind = "cancelled"
)

// Record is the per-URL output of one crawl task.
// Every accepted unique input produces exactly one Record.
type Record struct {
	// Index is the slot of this record in the run, equal to dedupe order.
	Index int `json:"index"`

	// SourceURL is the raw input string.
	SourceURL string `json:"source_url"`

	// NormalizedURL is the canonical URL, empty for unparseable input.
	NormalizedURL string `json:"normalized_url,omitempty"`

	// Status is the terminal state.
	Status Status `json:"status"`

	// Kind refines failed and cancelled records.
	Kind FailureKind `json:"failure_kind,omitempty"`

	// Reason is a human readable failure description.
	Reason string `json:"reason,omitempty"`

	// Attempts is the number of HTTP attempts made for the primary fetch.
	Attempts int `json:"attempts"`

	// StatusCode is the HTTP status of the last attempt, 0 if none.
	StatusCode int `json:"status_code,omitempty"`

	// Fields holds the extracted product data.
	Fields Fields `json:"fields"`
}

// StatusText renders the status as "ok", "failed:<reason>" or "cancelled".
func (r Record) StatusText() string {
	switch r.Status {
	case StatusOK:
		return string(StatusOK)
	case StatusCancelled:
		return string(StatusCancelled)
	default:
		if r.Reason == "" {
			return string(StatusFailed)
		}
		return string(StatusFailed) + ":" + r.Reason
	}
}

// OK reports whether the record is a success.
func (r Record) OK() bool {
	return r.Status == StatusOK
}

// NewOKRecord builds a success record for the entry.
func NewOKRecord(index int, entry URLEntry, fields Fields) Record {
	return Record{
		Index:         index,
		SourceURL:     entry.Raw,
		NormalizedURL: entry.Normalized,
		Status:        StatusOK,
		Fields:        fields,
	}
}

// NewFailedRecord builds a failure record for the entry.
func NewFailedRecord(index int, entry URLEntry, kind FailureKind, reason string) Record {
	return Record{
		Index:         index,
		SourceURL:     entry.Raw,
		NormalizedURL: entry.Normalized,
		Status:        StatusFailed,
		Kind:          kind,
		Reason:        reason,
	}
}

// NewValidationRecord builds the failure record for an invalid entry.
func NewValidationRecord(index int, entry URLEntry) Record {
	return NewFailedRecord(index, entry, FailureValidation, entry.Error)
}

// NewCancelledRecord builds the record for a task skipped by a stop request.
func NewCancelledRecord(index int, entry URLEntry) Record {
	return Record{
		Index:         index,
		SourceURL:     entry.Raw,
		NormalizedURL: entry.Normalized,
		Status:        StatusCancelled,
		Kind:          FailureCancelled,
		Reason:        "stop requested",
	}
}
