// Package monitor exposes a running crawl over HTTP.
//
// Metrics collects Prometheus counters fed by the fetcher's attempt hook
// and the scheduler's record callback. Server serves those metrics next to
// a JSON progress view and a stop endpoint that requests a cooperative stop.
package monitor
