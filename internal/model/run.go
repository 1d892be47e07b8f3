package model

import "time"

// Progress is a point-in-time view of a run's counters.
type Progress struct {
	// Total is the number of records the run will produce.
	Total int64 `json:"total"`

	// Submitted is the number of entries accepted into the run: dispatched
	// tasks plus entries failed at intake. Completed never exceeds it.
	Submitted int64 `json:"submitted"`

	// InFlight is the number of tasks currently being processed.
	InFlight int64 `json:"in_flight"`

	// Completed is the number of records stored, whatever their status.
	Completed int64 `json:"completed"`

	// Failed is the number of stored records with StatusFailed.
	Failed int64 `json:"failed"`

	// Cancelled is the number of stored records with StatusCancelled.
	Cancelled int64 `json:"cancelled"`

	// Stopping is true once a stop has been requested.
	Stopping bool `json:"stopping"`
}

// Succeeded returns the number of successful records so far.
func (p Progress) Succeeded() int64 {
	return p.Completed - p.Failed - p.Cancelled
}

// CrawlRun is the frozen result of a single run.
// It is produced once, after every worker is idle, and never mutated.
type CrawlRun struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Domain is the target domain URLs were validated against.
	Domain string `json:"domain"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled is true when a stop request was observed during the run.
	Cancelled bool `json:"cancelled"`

	// Inputs is the number of raw input URLs before dedupe.
	Inputs int `json:"inputs"`

	// Records holds one record per deduplicated entry, in dedupe order.
	Records []Record `json:"records"`

	// Counts are the final counters.
	Counts Progress `json:"counts"`
}

// Duration returns how long the run took.
func (r *CrawlRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Columns returns the union of field keys across the run's records.
func (r *CrawlRun) Columns() []string {
	return ColumnUnion(r.Records)
}

// RecordsWithStatus returns the records whose status is s.
func (r *CrawlRun) RecordsWithStatus(s Status) []Record {
	out := make([]Record, 0)
	for _, rec := range r.Records {
		if rec.Status == s {
			out = append(out, rec)
		}
	}
	return out
}
