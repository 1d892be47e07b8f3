package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Run is the live state of one crawl. It owns the cancellation flag, the
// counters and the aggregator. Nothing in it is shared between runs.
type Run struct {
	id      string
	domain  string
	inputs  int
	entries []model.URLEntry
	agg     *Aggregator

	startedAt time.Time

	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	submitted atomic.Int64
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithRunID overrides the generated run ID.
func WithRunID(id string) RunOption {
	return func(r *Run) {
		if id != "" {
			r.id = id
		}
	}
}

// WithDomain records the target domain on the run.
func WithDomain(domain string) RunOption {
	return func(r *Run) {
		r.domain = domain
	}
}

// WithInputCount records how many raw inputs there were before dedupe.
func WithInputCount(n int) RunOption {
	return func(r *Run) {
		r.inputs = n
	}
}

// NewRun creates a run over deduplicated entries. Slot i belongs to
// entries[i].
func NewRun(entries []model.URLEntry, opts ...RunOption) *Run {
	r := &Run{
		id:      uuid.NewString(),
		inputs:  len(entries),
		entries: append([]model.URLEntry(nil), entries...),
		agg:     NewAggregator(len(entries)),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the run ID.
func (r *Run) ID() string {
	return r.id
}

// Entries returns a copy of the run's entries in slot order.
func (r *Run) Entries() []model.URLEntry {
	return append([]model.URLEntry(nil), r.entries...)
}

// Stop requests a cooperative stop. It is safe to call from any goroutine
// and any number of times. It reports whether this call set the flag.
func (r *Run) Stop() bool {
	first := false
	r.stopOnce.Do(func() {
		r.stopped.Store(true)
		close(r.done)
		first = true
	})
	return first
}

// Stopped reports whether a stop was requested.
func (r *Run) Stopped() bool {
	return r.stopped.Load()
}

// Done is closed when a stop is requested.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Progress returns a snapshot of the counters.
func (r *Run) Progress() model.Progress {
	return model.Progress{
		Total:     int64(len(r.entries)),
		Submitted: r.submitted.Load(),
		InFlight:  r.inFlight.Load(),
		Completed: r.completed.Load(),
		Failed:    r.failed.Load(),
		Cancelled: r.cancelled.Load(),
		Stopping:  r.Stopped(),
	}
}

// store puts rec into its slot and updates the counters.
func (r *Run) store(rec model.Record) error {
	if err := r.agg.Append(rec); err != nil {
		return err
	}
	switch rec.Status {
	case model.StatusFailed:
		r.failed.Add(1)
	case model.StatusCancelled:
		r.cancelled.Add(1)
	}
	r.completed.Add(1)
	return nil
}

// finalize freezes the run into a CrawlRun.
func (r *Run) finalize(aborted bool) (*model.CrawlRun, error) {
	records, err := r.agg.Finalize()
	if err != nil {
		return nil, err
	}
	return &model.CrawlRun{
		ID:         r.id,
		Domain:     r.domain,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
		Cancelled:  aborted || r.Stopped(),
		Inputs:     r.inputs,
		Records:    records,
		Counts:     r.Progress(),
	}, nil
}
