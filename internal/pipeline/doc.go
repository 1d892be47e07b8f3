// Package pipeline runs a crawl: a fixed pool of workers pulls tasks from
// a queue and drives each one through a sequence of steps (fetch, parse,
// optional enrichment). Results land in an order-preserving aggregator.
//
// Cancellation is cooperative. Run.Stop sets a run-scoped flag that workers
// check before starting a task, so queued tasks become cancelled records
// while in-flight tasks finish. Cancelling the context passed to
// Scheduler.Execute is the hard abort: in-flight requests fail and
// everything still queued is cancelled.
//
// Every deduplicated input entry yields exactly one record, in input order.
package pipeline
