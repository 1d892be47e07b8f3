package fetcher

import "errors"

var (
	// ErrInvalidProxyURL is returned when the proxy URL cannot be parsed or
	// uses an unsupported scheme.
	ErrInvalidProxyURL = errors.New("invalid proxy url: expected socks5://, http:// or https://")

	// ErrBodyTooLarge is reported when a response body exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)
