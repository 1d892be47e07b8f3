package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// DefaultMaxBodySize limits how much of a response body is read.
const DefaultMaxBodySize int64 = 10 * 1024 * 1024

// StopSignal is the run-scoped cooperative cancellation flag.
type StopSignal interface {
	// Stopped reports whether a stop has been requested.
	Stopped() bool

	// Done is closed when a stop is requested.
	Done() <-chan struct{}
}

// neverStop is a StopSignal that is never set.
type neverStop struct{}

func (neverStop) Stopped() bool         { return false }
func (neverStop) Done() <-chan struct{} { return nil }

// NeverStop returns a StopSignal that is never set.
func NeverStop() StopSignal {
	return neverStop{}
}

// Result is the terminal result of Fetch.
type Result struct {
	// Outcome is the outcome of the last attempt. For a cancelled task it is
	// a fatal outcome with reason "cancelled".
	Outcome model.FetchOutcome

	// Attempts is the number of HTTP attempts made.
	Attempts int

	// State is the terminal state of the retry machine.
	State State

	// Exhausted is true when the task failed because every allowed attempt
	// was retryable.
	Exhausted bool

	// Interrupted is true when a stop ended a retry sequence early.
	Interrupted bool
}

// AttemptHook is called after every attempt. It must be safe for
// concurrent use.
type AttemptHook func(task model.CrawlTask, outcome model.FetchOutcome)

// Fetcher performs HTTP requests for crawl tasks with retry.
// A Fetcher is safe for concurrent use by multiple workers.
type Fetcher struct {
	// client performs the requests. Per-attempt timeouts come from the task.
	client *http.Client

	// maxBodySize limits the response body size.
	maxBodySize int64

	// logger is used for attempt-level logging.
	logger *slog.Logger

	// hook observes every attempt, e.g. for metrics.
	hook AttemptHook
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxBodySize sets the maximum response body size. Non-positive values
// are ignored.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithAttemptHook registers a hook called after every attempt.
func WithAttemptHook(hook AttemptHook) Option {
	return func(f *Fetcher) {
		f.hook = hook
	}
}

// New creates a Fetcher using client. A nil client means http.DefaultClient.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch runs the retry state machine for task until it reaches a terminal
// state. stop is polled before every attempt and wakes retry waits early;
// nil means the task can never be stopped.
func (f *Fetcher) Fetch(ctx context.Context, task model.CrawlTask, stop StopSignal) Result {
	if stop == nil {
		stop = NeverStop()
	}
	stopped := func() bool { return stop.Stopped() || ctx.Err() != nil }

	var res Result
	state := StatePending

	for !state.Terminal() {
		switch state {
		case StatePending:
			state = Next(state, Event{Stopped: stopped()})

		case StateAttempting:
			res.Attempts++
			out := f.attempt(ctx, task)
			out.Attempt = res.Attempts
			res.Outcome = out
			if f.hook != nil {
				f.hook(task, out)
			}

			ev := Event{
				Outcome:    out,
				Attempt:    res.Attempts,
				MaxRetries: task.Request.MaxRetries,
				Stopped:    stopped(),
			}
			state = Next(state, ev)

			if state == StateFailed && out.Kind == model.OutcomeRetryable {
				res.Exhausted = res.Attempts > task.Request.MaxRetries
				res.Interrupted = !res.Exhausted
			}
			f.logAttempt(task, out, state)

		case StateRetryWait:
			delay := Delay(task.Request.Backoff, task.Request.RetryDelay, res.Attempts)
			f.wait(ctx, stop, delay)
			state = Next(state, Event{Stopped: stopped()})
			if state == StateFailed {
				res.Interrupted = true
			}
		}
	}

	res.State = state
	if state == StateCancelled {
		res.Outcome = model.Fatal(0, "cancelled")
	}
	return res
}

// wait sleeps for d or until ctx is done or stop is requested.
func (f *Fetcher) wait(ctx context.Context, stop StopSignal, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-stop.Done():
	}
}

// attempt performs one HTTP GET and classifies the result.
func (f *Fetcher) attempt(ctx context.Context, task model.CrawlTask) model.FetchOutcome {
	reqCtx := ctx
	if task.Request.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, task.Request.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, task.FetchURL, nil)
	if err != nil {
		return model.Fatal(0, "invalid request: "+err.Error())
	}
	applyProfile(req.Header, task.Request.Headers, task.Request.Cookie)

	resp, err := f.client.Do(req)
	if err != nil {
		kind, reason := ClassifyError(ctx, err)
		return model.FetchOutcome{Kind: kind, Reason: reason}
	}
	defer resp.Body.Close()

	if kind := ClassifyStatus(resp.StatusCode); kind != model.OutcomeSuccess {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // best effort
		return model.FetchOutcome{Kind: kind, StatusCode: resp.StatusCode, Reason: statusReason(resp.StatusCode)}
	}

	body, err := f.readBody(resp)
	if err != nil {
		kind, reason := ClassifyError(ctx, err)
		return model.FetchOutcome{Kind: kind, StatusCode: resp.StatusCode, Reason: reason}
	}

	return model.Success(resp.StatusCode, body, resp.Header.Get("Content-Type"))
}

// readBody reads at most maxBodySize bytes and decodes textual bodies to UTF-8.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBodySize)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return raw, nil
	}
	// Without a declared charset, valid UTF-8 is taken as is. The sniffer
	// only looks at the first 1024 bytes and would otherwise fall back to
	// windows-1252 for an ASCII prefix.
	_, name, certain := charset.DetermineEncoding(raw, contentType)
	if utf8.Valid(raw) && (!certain || name == "utf-8") {
		return raw, nil
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw, nil //nolint:nilerr // unknown charset: keep the raw bytes
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw, nil //nolint:nilerr // decoding failure: keep the raw bytes
	}
	return decoded, nil
}

// isTextual reports whether a content type should be charset-decoded.
func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") || strings.Contains(ct, "xml") || strings.Contains(ct, "html")
}

// logAttempt logs one attempt at a level matching its outcome.
func (f *Fetcher) logAttempt(task model.CrawlTask, out model.FetchOutcome, next State) {
	attrs := []any{
		"url", task.FetchURL,
		"attempt", out.Attempt,
		"outcome", out.Kind.String(),
		"next", next.String(),
	}
	if out.StatusCode != 0 {
		attrs = append(attrs, "status", out.StatusCode)
	}
	switch out.Kind {
	case model.OutcomeSuccess:
		f.logger.Debug("fetch attempt succeeded", attrs...)
	case model.OutcomeRetryable:
		f.logger.Info("fetch attempt failed", append(attrs, "reason", out.Reason)...)
	default:
		f.logger.Warn("fetch attempt failed", append(attrs, "reason", out.Reason)...)
	}
}
