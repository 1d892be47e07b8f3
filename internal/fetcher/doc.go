// Package fetcher performs HTTP GET requests for crawl tasks, classifies
// each attempt and retries transient failures.
//
// Classification:
//   - 2xx responses are successes.
//   - 429, 5xx, timeouts, connection resets and truncated bodies are retryable.
//   - Other 4xx, DNS failures, malformed responses and aborted contexts are fatal.
//
// The retry loop is an explicit state machine (see Next). Pending moves to
// Attempting, and Attempting ends in Succeeded, RetryWait or Failed.
// RetryWait moves back to Attempting or to Failed. A stop signal turns
// Pending into Cancelled and ends RetryWait early. It never interrupts a
// request that is already in flight.
package fetcher
