package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/cliqcrawl/internal/fetcher"
	"github.com/nao1215/cliqcrawl/internal/intake"
	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

func testRequest() model.RequestConfig {
	return model.RequestConfig{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Backoff:    model.BackoffFixed,
		RetryDelay: time.Millisecond,
	}
}

func pageEntries(base string, n int) []model.URLEntry {
	entries := make([]model.URLEntry, n)
	for i := range n {
		u := fmt.Sprintf("%s/item/%d", base, i)
		entries[i] = model.URLEntry{Raw: u, Normalized: u, Key: u, Valid: true, Position: i}
	}
	return entries
}

func newPageScheduler(server *httptest.Server, opts ...SchedulerOption) *Scheduler {
	opts = append([]SchedulerOption{WithMode(model.ModePage), WithRequest(testRequest())}, opts...)
	return NewScheduler(fetcher.New(server.Client()), parser.New(), opts...)
}

// TestSchedulerExecute tests dispatch, ordering and the one-record rule.
func TestSchedulerExecute(t *testing.T) {
	t.Parallel()

	t.Run("records follow input order", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Earlier items answer later so completion order is reversed.
			var n int
			_, _ = fmt.Sscanf(r.URL.Path, "/item/%d", &n) //nolint:errcheck // test path
			time.Sleep(time.Duration(10-n) * 5 * time.Millisecond)
			fmt.Fprintf(w, "<html><body><h1>Item %d</h1></body></html>", n)
		}))
		defer server.Close()

		run := NewRun(pageEntries(server.URL, 10))
		result, err := newPageScheduler(server, WithThreads(4)).Execute(context.Background(), run)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		if len(result.Records) != 10 {
			t.Fatalf("expected 10 records, got %d", len(result.Records))
		}
		for i, rec := range result.Records {
			if rec.Index != i {
				t.Errorf("record %d has index %d", i, rec.Index)
			}
			if !rec.OK() {
				t.Errorf("record %d: %s", i, rec.StatusText())
			}
			if want := fmt.Sprintf("Item %d", i); rec.Fields.Value("name") != want {
				t.Errorf("record %d name = %q, want %q", i, rec.Fields.Value("name"), want)
			}
		}
		if result.Cancelled {
			t.Error("run should not be cancelled")
		}
		if result.Counts.Completed != 10 || result.Counts.Succeeded() != 10 {
			t.Errorf("unexpected counts %+v", result.Counts)
		}
	})

	t.Run("invalid and duplicate inputs", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "<html><body><h1>Product</h1></body></html>")
		}))
		defer server.Close()

		v := intake.NewValidator("127.0.0.1")
		entries, stats := intake.Prepare(v, []string{
			server.URL + "/a",
			"bad-url",
			server.URL + "/a/",
			"https://example.com/p-1",
		})
		if stats.Duplicates() != 1 {
			t.Fatalf("expected 1 duplicate, got %d", stats.Duplicates())
		}

		var callbacks, ahead atomic.Int32
		run := NewRun(entries, WithInputCount(stats.Inputs))
		onRecord := func(model.Record) {
			callbacks.Add(1)
			if p := run.Progress(); p.Completed > p.Submitted {
				ahead.Add(1)
			}
		}
		result, err := newPageScheduler(server, WithRecordCallback(onRecord)).
			Execute(context.Background(), run)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		if len(result.Records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(result.Records))
		}
		if !result.Records[0].OK() {
			t.Errorf("first record: %s", result.Records[0].StatusText())
		}
		for _, i := range []int{1, 2} {
			if result.Records[i].Kind != model.FailureValidation {
				t.Errorf("record %d: expected validation failure, got %s", i, result.Records[i].StatusText())
			}
		}
		if hits.Load() != 1 {
			t.Errorf("expected exactly 1 request, got %d", hits.Load())
		}
		if callbacks.Load() != 3 {
			t.Errorf("expected 3 callbacks, got %d", callbacks.Load())
		}
		if ahead.Load() != 0 {
			t.Errorf("completed ran ahead of submitted %d times", ahead.Load())
		}
		if result.Counts.Submitted != 3 || result.Counts.Completed != 3 {
			t.Errorf("unexpected counts %+v", result.Counts)
		}
		if result.Inputs != 4 {
			t.Errorf("expected 4 inputs, got %d", result.Inputs)
		}
	})

	t.Run("fetch failures become records", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/item/0":
				http.NotFound(w, r)
			case "/item/1":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				fmt.Fprint(w, "<html><head><title>Page Not Found</title></head></html>")
			}
		}))
		defer server.Close()

		run := NewRun(pageEntries(server.URL, 3))
		result, err := newPageScheduler(server).Execute(context.Background(), run)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want := []struct {
			kind     model.FailureKind
			attempts int
			status   string
		}{
			{model.FailureFatal, 1, "failed:http 404"},
			{model.FailureRetriesExhausted, 3, "failed:http 503"},
			{model.FailureNotFound, 1, "failed:not found: page not found"},
		}
		for i, w := range want {
			rec := result.Records[i]
			if rec.Kind != w.kind || rec.Attempts != w.attempts || rec.StatusText() != w.status {
				t.Errorf("record %d = (%s, %d, %q), want (%s, %d, %q)",
					i, rec.Kind, rec.Attempts, rec.StatusText(), w.kind, w.attempts, w.status)
			}
		}
		if result.Counts.Failed != 3 {
			t.Errorf("expected 3 failed, got %d", result.Counts.Failed)
		}
	})
}

// TestSchedulerConcurrencyLimit tests that no more than Threads requests
// are in flight.
func TestSchedulerConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var current, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		fmt.Fprint(w, "<html><body><h1>x</h1></body></html>")
	}))
	defer server.Close()

	run := NewRun(pageEntries(server.URL, 20))
	result, err := newPageScheduler(server, WithThreads(3)).Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent requests, saw %d", peak.Load())
	}
	if len(result.Records) != 20 {
		t.Errorf("expected 20 records, got %d", len(result.Records))
	}
}

// TestSchedulerStop tests cooperative cancellation mid-run.
func TestSchedulerStop(t *testing.T) {
	t.Parallel()

	var started atomic.Int32
	bothStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if started.Add(1) == 2 {
			once.Do(func() { close(bothStarted) })
		}
		<-release
		fmt.Fprint(w, "<html><body><h1>done</h1></body></html>")
	}))
	defer server.Close()

	run := NewRun(pageEntries(server.URL, 10))
	sched := newPageScheduler(server, WithThreads(2))

	type outcome struct {
		result *model.CrawlRun
		err    error
	}
	out := make(chan outcome, 1)
	go func() {
		r, err := sched.Execute(context.Background(), run)
		out <- outcome{r, err}
	}()

	select {
	case <-bothStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not start")
	}
	if p := run.Progress(); p.InFlight != 2 {
		t.Errorf("expected 2 in flight, got %d", p.InFlight)
	}
	run.Stop()
	close(release)

	o := <-out
	if o.err != nil {
		t.Fatalf("Execute() error = %v", o.err)
	}

	ok := o.result.RecordsWithStatus(model.StatusOK)
	cancelled := o.result.RecordsWithStatus(model.StatusCancelled)
	if len(ok) != 2 || len(cancelled) != 8 {
		t.Errorf("expected 2 ok and 8 cancelled, got %d ok and %d cancelled", len(ok), len(cancelled))
	}
	if started.Load() != 2 {
		t.Errorf("expected no request after stop, got %d", started.Load())
	}
	if !o.result.Cancelled {
		t.Error("expected run to be marked cancelled")
	}
	for _, rec := range cancelled {
		if rec.Attempts != 0 {
			t.Errorf("cancelled record %d has %d attempts", rec.Index, rec.Attempts)
		}
	}
}

// TestSchedulerStopBeforeStart tests a stop requested before Execute.
func TestSchedulerStopBeforeStart(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	entries := pageEntries(server.URL, 3)
	entries = append(entries, model.URLEntry{Raw: "bad", Error: intake.ReasonMalformed, Position: 3})

	run := NewRun(entries)
	run.Stop()

	result, err := newPageScheduler(server).Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
	if got := len(result.RecordsWithStatus(model.StatusCancelled)); got != 3 {
		t.Errorf("expected 3 cancelled, got %d", got)
	}
	if result.Records[3].Kind != model.FailureValidation {
		t.Errorf("invalid entry should stay a validation failure, got %s", result.Records[3].StatusText())
	}
}

// TestSchedulerContextAbort tests the hard-abort path.
func TestSchedulerContextAbort(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	run := NewRun(pageEntries(server.URL, 5))

	go func() {
		<-entered
		cancel()
	}()

	result, err := newPageScheduler(server, WithThreads(1)).Execute(ctx, run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	first := result.Records[0]
	if first.Status != model.StatusFailed || first.Reason != "aborted" {
		t.Errorf("expected in-flight task to fail as aborted, got %s", first.StatusText())
	}
	if got := len(result.RecordsWithStatus(model.StatusCancelled)); got != 4 {
		t.Errorf("expected 4 cancelled, got %d", got)
	}
	if !result.Cancelled {
		t.Error("expected run to be marked cancelled")
	}
}

const detailsBody = `{
  "productTitle": "Linen Shirt",
  "brandName": "Acme",
  "brandURL": "/acme/c-mbh1",
  "categoryHierarchy": [{"category_id": "msh1012", "category_name": "Shirts"}],
  "sizeGuideId": "SG1"
}`

// TestSchedulerAPIMode tests details fetching and enrichment.
func TestSchedulerAPIMode(t *testing.T) {
	t.Parallel()

	var paths sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.Store(r.URL.Path, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/products/productDetails/MP1":
			fmt.Fprint(w, detailsBody)
		case r.URL.Path == "/products/productDetails/MP2":
			fmt.Fprint(w, `{"status": "FAILURE", "error": "no product"}`)
		case strings.HasSuffix(r.URL.Path, "/customerVoice"):
			fmt.Fprint(w, `{"customerVoiceData": [{"text": "Comfort", "value": "4.8"}]}`)
		case r.URL.Path == "/products/manufacturingdetails":
			fmt.Fprint(w, `{"manufacturer": [{"value": "Acme Mills"}], "packer": [{"value": "Acme Pack"}]}`)
		case strings.HasSuffix(r.URL.Path, "/sizeGuideChart"):
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	entries := []model.URLEntry{
		{Raw: "https://www.tatacliq.com/linen-shirt/p-mp1", Normalized: "https://www.tatacliq.com/linen-shirt/p-mp1", Valid: true},
		{Raw: "https://www.tatacliq.com/gone/p-mp2", Normalized: "https://www.tatacliq.com/gone/p-mp2", Valid: true, Position: 1},
		{Raw: "https://www.tatacliq.com/men/c-msh10", Normalized: "https://www.tatacliq.com/men/c-msh10", Valid: true, Position: 2},
	}

	sched := NewScheduler(fetcher.New(server.Client()), parser.New(),
		WithEndpoints(parser.NewEndpoints(server.URL)),
		WithEnrichment(true),
		WithRequest(testRequest()),
	)
	result, err := sched.Execute(context.Background(), NewRun(entries))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	rec := result.Records[0]
	if !rec.OK() {
		t.Fatalf("expected ok record, got %s", rec.StatusText())
	}
	want := map[string]string{
		"productTitle": "Linen Shirt",
		"Comfort":      "4.8",
		"manufacturer": "Acme Mills",
		"packer":       "Acme Pack",
	}
	for k, v := range want {
		if got := rec.Fields.Value(k); got != v {
			t.Errorf("field %q = %q, want %q", k, got, v)
		}
	}
	if rec.SourceURL != entries[0].Raw {
		t.Errorf("record keeps page url, got %q", rec.SourceURL)
	}
	if q, ok := paths.Load("/products/manufacturingdetails"); !ok || q != "brand=MBH1&category=MSH1012" {
		t.Errorf("unexpected manufacturing query %v", q)
	}

	if result.Records[1].Kind != model.FailureNotFound {
		t.Errorf("expected not_found, got %s", result.Records[1].StatusText())
	}
	if result.Records[2].StatusText() != "failed:no product id in url" {
		t.Errorf("expected missing product id failure, got %s", result.Records[2].StatusText())
	}
}

// TestPipelineExecute tests step sequencing.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("stops after a step settles the record", func(t *testing.T) {
		t.Parallel()

		var ran []string
		p := New()
		p.AddSteps(
			&funcStep{name: "first", fn: func(s *TaskState) error {
				ran = append(ran, "first")
				s.Finish(model.NewCancelledRecord(s.Task.Slot, s.Task.Entry))
				return nil
			}},
			&funcStep{name: "second", fn: func(*TaskState) error {
				ran = append(ran, "second")
				return nil
			}},
		)

		state := NewTaskState(model.CrawlTask{Slot: 4}, nil)
		p.Execute(context.Background(), state)

		if len(ran) != 1 {
			t.Errorf("expected only the first step to run, got %v", ran)
		}
		if state.Record.Status != model.StatusCancelled || state.Record.Index != 4 {
			t.Errorf("unexpected record %+v", state.Record)
		}
	})

	t.Run("step error becomes a fatal record", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&funcStep{name: "boom", fn: func(*TaskState) error { return fmt.Errorf("exploded") }})
		state := NewTaskState(model.CrawlTask{Slot: 1}, nil)
		p.Execute(context.Background(), state)

		if state.Record.StatusText() != "failed:boom: exploded" {
			t.Errorf("unexpected status %q", state.Record.StatusText())
		}
	})

	t.Run("no record produced", func(t *testing.T) {
		t.Parallel()

		p := New()
		state := NewTaskState(model.CrawlTask{Slot: 2}, nil)
		p.Execute(context.Background(), state)

		if state.Record.Status != model.StatusFailed || state.Record.Index != 2 {
			t.Errorf("unexpected record %+v", state.Record)
		}
		if p.StepCount() != 0 || len(p.StepNames()) != 0 {
			t.Error("expected empty pipeline")
		}
	})
}

type funcStep struct {
	name string
	fn   func(*TaskState) error
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Do(_ context.Context, state *TaskState) error {
	return s.fn(state)
}
