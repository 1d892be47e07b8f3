package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/cliqcrawl/internal/fetcher"
	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

// DefaultThreads is the worker count used when none is configured.
const DefaultThreads = 5

// Scheduler dispatches the tasks of a run to a fixed pool of workers.
type Scheduler struct {
	fetcher   *fetcher.Fetcher
	parser    *parser.Parser
	threads   int
	mode      model.Mode
	endpoints parser.Endpoints
	enrich    bool
	request   model.RequestConfig
	onRecord  func(model.Record)
	logger    *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithThreads sets the number of workers. Non-positive values are ignored.
func WithThreads(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.threads = n
		}
	}
}

// WithMode selects whether product pages or the details API are fetched.
func WithMode(m model.Mode) SchedulerOption {
	return func(s *Scheduler) {
		if m.IsValid() {
			s.mode = m
		}
	}
}

// WithEndpoints sets the web service endpoints used in API mode.
func WithEndpoints(e parser.Endpoints) SchedulerOption {
	return func(s *Scheduler) {
		s.endpoints = e
	}
}

// WithEnrichment turns the enrichment step on or off.
func WithEnrichment(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.enrich = enabled
	}
}

// WithRequest sets the request configuration shared by all tasks.
func WithRequest(rc model.RequestConfig) SchedulerOption {
	return func(s *Scheduler) {
		s.request = rc
	}
}

// WithRecordCallback registers a function called with every stored
// record. It is called from worker goroutines and must be safe for
// concurrent use.
func WithRecordCallback(fn func(model.Record)) SchedulerOption {
	return func(s *Scheduler) {
		s.onRecord = fn
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler and the
// pipelines it builds.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(f *fetcher.Fetcher, p *parser.Parser, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		fetcher:   f,
		parser:    p,
		threads:   DefaultThreads,
		mode:      model.ModeAPI,
		endpoints: parser.NewEndpoints(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Threads returns the worker count.
func (s *Scheduler) Threads() int {
	return s.threads
}

// newPipeline builds the step sequence for one task.
func (s *Scheduler) newPipeline() *Pipeline {
	p := New(WithLogger(s.logger))
	p.AddSteps(NewFetchStep(s.fetcher), NewParseStep(s.parser))
	if s.enrich && s.mode == model.ModeAPI {
		p.AddStep(NewEnrichStep(s.fetcher, s.endpoints, WithEnrichLogger(s.logger)))
	}
	return p
}

// taskFor builds the task for the entry in slot. ok is false when no fetch
// URL can be derived.
func (s *Scheduler) taskFor(slot int, entry model.URLEntry) (model.CrawlTask, bool) {
	task := model.CrawlTask{
		Entry:    entry,
		Slot:     slot,
		FetchURL: entry.Normalized,
		Request:  s.request,
	}
	if s.mode == model.ModeAPI {
		pid, ok := parser.ProductID(entry.Normalized)
		if !ok {
			return task, false
		}
		task.FetchURL = s.endpoints.Details(pid)
	}
	return task, true
}

// Execute runs every entry of run and returns the frozen result after all
// workers are idle.
//
// Invalid entries are recorded as validation failures before any worker
// starts. Valid entries are queued and pulled by exactly Threads workers.
// A worker checks the stop flag and ctx before it starts a task; when
// either is set the task is recorded as cancelled.
//
// The returned error is non-nil only when the run's bookkeeping is broken
// (a slot written twice or left empty). Task failures are records.
func (s *Scheduler) Execute(ctx context.Context, run *Run) (*model.CrawlRun, error) {
	run.startedAt = time.Now()
	entries := run.entries

	s.logger.Info("starting crawl",
		"run_id", run.id,
		"entries", len(entries),
		"threads", s.threads,
		"mode", string(s.mode),
	)

	queue := make(chan model.CrawlTask, len(entries))
	for i, entry := range entries {
		run.submitted.Add(1)
		if !entry.Valid {
			if err := s.store(run, model.NewValidationRecord(i, entry)); err != nil {
				return nil, err
			}
			continue
		}
		task, ok := s.taskFor(i, entry)
		if !ok {
			if err := s.store(run, model.NewFailedRecord(i, entry, model.FailureFatal, "no product id in url")); err != nil {
				return nil, err
			}
			continue
		}
		queue <- task
	}
	close(queue)

	var g errgroup.Group
	g.SetLimit(s.threads)
	for range min(s.threads, len(queue)) {
		g.Go(func() error {
			return s.work(ctx, run, queue)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := run.finalize(ctx.Err() != nil)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize run: %w", err)
	}

	s.logger.Info("crawl complete",
		"run_id", run.id,
		"records", len(result.Records),
		"failed", result.Counts.Failed,
		"cancelled", result.Counts.Cancelled,
		"stopped", result.Cancelled,
		"elapsed", result.Duration(),
	)
	return result, nil
}

// work is the worker loop. It drains the queue so that every task yields
// a record even after a stop.
func (s *Scheduler) work(ctx context.Context, run *Run, queue <-chan model.CrawlTask) error {
	p := s.newPipeline()
	for task := range queue {
		if run.Stopped() || ctx.Err() != nil {
			if err := s.store(run, model.NewCancelledRecord(task.Slot, task.Entry)); err != nil {
				return err
			}
			continue
		}

		run.inFlight.Add(1)
		state := NewTaskState(task, run)
		p.Execute(ctx, state)
		run.inFlight.Add(-1)

		if err := s.store(run, state.Record); err != nil {
			return err
		}
	}
	return nil
}

// store records rec on the run and notifies the callback.
func (s *Scheduler) store(run *Run, rec model.Record) error {
	if err := run.store(rec); err != nil {
		s.logger.Error("failed to store record", "index", rec.Index, "error", err)
		return err
	}
	s.logger.Debug("record stored",
		"index", rec.Index,
		"url", rec.NormalizedURL,
		"status", rec.StatusText(),
	)
	if s.onRecord != nil {
		s.onRecord(rec)
	}
	return nil
}
