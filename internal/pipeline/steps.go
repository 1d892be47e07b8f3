package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/cliqcrawl/internal/fetcher"
	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

// FetchStep performs the primary fetch of a task with retry.
type FetchStep struct {
	fetcher *fetcher.Fetcher
}

// NewFetchStep creates a fetch step.
func NewFetchStep(f *fetcher.Fetcher) *FetchStep {
	return &FetchStep{fetcher: f}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches the task URL. Anything but success settles the record.
func (s *FetchStep) Do(ctx context.Context, state *TaskState) error {
	task := state.Task
	res := s.fetcher.Fetch(ctx, task, state.Stop)
	state.Fetch = res

	switch res.State {
	case fetcher.StateSucceeded:
		return nil
	case fetcher.StateCancelled:
		state.Finish(model.NewCancelledRecord(task.Slot, task.Entry))
		return nil
	}

	kind := model.FailureFatal
	if res.Exhausted {
		kind = model.FailureRetriesExhausted
	}
	rec := model.NewFailedRecord(task.Slot, task.Entry, kind, res.Outcome.Reason)
	rec.Attempts = res.Attempts
	rec.StatusCode = res.Outcome.StatusCode
	state.Finish(rec)
	return nil
}

// ParseStep turns the fetched body into a record.
type ParseStep struct {
	parser *parser.Parser
}

// NewParseStep creates a parse step.
func NewParseStep(p *parser.Parser) *ParseStep {
	return &ParseStep{parser: p}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do parses the body. A not-found or undecodable document settles the
// record as failed; an ok record is left open for enrichment.
func (s *ParseStep) Do(_ context.Context, state *TaskState) error {
	task := state.Task
	res := s.parser.Analyze(state.Fetch.Outcome.Body, task.Entry.Normalized)
	state.Parsed = res

	rec := res.Record
	rec.Index = task.Slot
	rec.SourceURL = task.Entry.Raw
	rec.NormalizedURL = task.Entry.Normalized
	rec.Attempts = state.Fetch.Attempts
	rec.StatusCode = state.Fetch.Outcome.StatusCode

	if !rec.OK() {
		state.Finish(rec)
		return nil
	}
	state.Record = rec
	return nil
}

// EnrichStep adds fields from the customer-voice, manufacturing and
// size-guide endpoints. Each call is best-effort: a failure is logged and
// the record stays ok. Nothing is fetched once a stop is requested.
type EnrichStep struct {
	fetcher   *fetcher.Fetcher
	endpoints parser.Endpoints
	logger    *slog.Logger
}

// EnrichStepOption configures an EnrichStep.
type EnrichStepOption func(*EnrichStep)

// WithEnrichLogger sets a custom logger for the enrichment step.
func WithEnrichLogger(logger *slog.Logger) EnrichStepOption {
	return func(s *EnrichStep) {
		s.logger = logger
	}
}

// NewEnrichStep creates an enrichment step.
func NewEnrichStep(f *fetcher.Fetcher, endpoints parser.Endpoints, opts ...EnrichStepOption) *EnrichStep {
	s := &EnrichStep{
		fetcher:   f,
		endpoints: endpoints,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *EnrichStep) Name() string {
	return "enrich"
}

// enrichment is one extra request and the parser for its response.
type enrichment struct {
	name  string
	url   string
	parse func([]byte) (model.Fields, error)
}

// Do runs the enrichment requests that the parsed document has
// identifiers for.
func (s *EnrichStep) Do(ctx context.Context, state *TaskState) error {
	if state.Parsed.Format != parser.FormatJSON || !state.Record.OK() {
		return nil
	}
	refs := state.Parsed.Refs
	if refs.ProductID == "" {
		return nil
	}

	calls := []enrichment{
		{name: "customer_voice", url: s.endpoints.CustomerVoice(refs.ProductID), parse: parser.ParseCustomerVoice},
	}
	if refs.BrandCode != "" && refs.CategoryID != "" {
		calls = append(calls, enrichment{
			name:  "manufacturing",
			url:   s.endpoints.Manufacturing(refs.BrandCode, refs.CategoryID),
			parse: parser.ParseManufacturing,
		})
	}
	if refs.SizeGuideID != "" {
		calls = append(calls, enrichment{
			name:  "size_guide",
			url:   s.endpoints.SizeGuide(refs.ProductID, refs.SizeGuideID),
			parse: parser.ParseSizeGuide,
		})
	}

	for _, call := range calls {
		if state.Stop.Stopped() || ctx.Err() != nil {
			s.logger.Debug("enrichment skipped after stop", "url", state.Task.Entry.Normalized)
			return nil
		}

		task := state.Task
		task.FetchURL = call.url
		res := s.fetcher.Fetch(ctx, task, state.Stop)
		if res.State != fetcher.StateSucceeded {
			s.logger.Debug("enrichment request failed",
				"call", call.name,
				"url", call.url,
				"reason", res.Outcome.Reason,
			)
			continue
		}

		fields, err := call.parse(res.Outcome.Body)
		if err != nil {
			s.logger.Debug("enrichment response ignored",
				"call", call.name,
				"url", call.url,
				"error", err,
			)
			continue
		}
		state.Record.Fields.Merge(fields)
	}
	return nil
}
