package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoInput is returned when neither URLs nor an input file are given.
	ErrNoInput = errors.New("no input specified: provide URLs as arguments or use --input")

	// ErrInvalidThreads is returned when the worker count is not positive.
	ErrInvalidThreads = errors.New("invalid threads: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidBackoff is returned for an unknown backoff strategy.
	ErrInvalidBackoff = errors.New("invalid backoff: must be fixed or linear")

	// ErrInvalidMode is returned for an unknown crawl mode.
	ErrInvalidMode = errors.New("invalid mode: must be api or page")

	// ErrNoDomain is returned when the target domain is empty.
	ErrNoDomain = errors.New("no target domain specified")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
