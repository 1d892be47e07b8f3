package model

import "time"

// URLEntry is a single input URL after validation.
// It is created once at intake and never modified afterwards.
type URLEntry struct {
	// Raw is the URL string exactly as it appeared in the input.
	Raw string `json:"raw"`

	// Normalized is the canonical form used for fetching.
	// Empty when the raw string could not be parsed at all.
	Normalized string `json:"normalized,omitempty"`

	// Key is the dedupe key derived from Normalized.
	// Scheme and a leading "www." are not part of the key.
	Key string `json:"key,omitempty"`

	// Valid reports whether the entry passed syntax and domain checks.
	Valid bool `json:"valid"`

	// Error describes why the entry is invalid. Empty for valid entries.
	Error string `json:"error,omitempty"`

	// Position is the zero-based index of this entry in the original input.
	Position int `json:"position"`
}

// BackoffStrategy names how the delay between retries grows.
type BackoffStrategy string

const (
	// BackoffFixed waits the same base delay before every retry.
	BackoffFixed BackoffStrategy = "fixed"

	// BackoffLinear waits base delay multiplied by the attempt number.
	BackoffLinear BackoffStrategy = "linear"
)

// IsValid reports whether s is a known strategy.
func (s BackoffStrategy) IsValid() bool {
	return s == BackoffFixed || s == BackoffLinear
}

// RequestConfig holds the request settings shared by every task in a run.
type RequestConfig struct {
	// Headers are sent with every request. Keys are header names.
	Headers map[string]string `json:"-"`

	// Cookie is a raw Cookie header value ("a=1; b=2").
	Cookie string `json:"-"`

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration `json:"timeout"`

	// MaxRetries is the number of additional attempts after a retryable failure.
	MaxRetries int `json:"max_retries"`

	// Backoff selects the retry delay growth.
	Backoff BackoffStrategy `json:"backoff"`

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration `json:"retry_delay"`
}

// CrawlTask is one unit of work for a worker.
// A task is owned by exactly one worker for its whole lifetime.
type CrawlTask struct {
	// Entry is the deduplicated, valid input entry.
	Entry URLEntry

	// Slot is the index of the record slot this task fills.
	Slot int

	// FetchURL is the URL actually requested. In API mode it is the
	// product-details endpoint derived from the entry, otherwise it equals
	// Entry.Normalized.
	FetchURL string

	// Request is the shared request configuration.
	Request RequestConfig
}

// Mode selects what is fetched for a product URL.
type Mode string

const (
	// ModeAPI fetches the product-details web service document derived
	// from the product ID in the URL.
	ModeAPI Mode = "api"

	// ModePage fetches the product page itself.
	ModePage Mode = "page"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeAPI || m == ModePage
}
