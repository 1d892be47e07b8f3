package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// TestAggregator tests slot bookkeeping.
func TestAggregator(t *testing.T) {
	t.Parallel()

	t.Run("keeps slot order regardless of append order", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator(3)
		for _, i := range []int{2, 0, 1} {
			if err := agg.Append(model.Record{Index: i, SourceURL: string(rune('a' + i))}); err != nil {
				t.Fatalf("Append(%d) error = %v", i, err)
			}
		}

		records, err := agg.Finalize()
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		for i, rec := range records {
			if rec.Index != i || rec.SourceURL != string(rune('a'+i)) {
				t.Errorf("slot %d holds %+v", i, rec)
			}
		}
	})

	t.Run("rejects out of range and duplicates", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator(1)
		if err := agg.Append(model.Record{Index: 1}); !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("expected ErrSlotOutOfRange, got %v", err)
		}
		if err := agg.Append(model.Record{Index: -1}); !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("expected ErrSlotOutOfRange, got %v", err)
		}
		if err := agg.Append(model.Record{Index: 0}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := agg.Append(model.Record{Index: 0}); !errors.Is(err, ErrDuplicateRecord) {
			t.Errorf("expected ErrDuplicateRecord, got %v", err)
		}
	})

	t.Run("finalize requires every slot", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator(2)
		_ = agg.Append(model.Record{Index: 1}) //nolint:errcheck // checked by Finalize
		if _, err := agg.Finalize(); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}

		// Still writable after a failed finalize.
		if err := agg.Append(model.Record{Index: 0}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := agg.Finalize(); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
	})

	t.Run("frozen after finalize", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator(0)
		if _, err := agg.Finalize(); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if _, err := agg.Finalize(); !errors.Is(err, ErrFrozen) {
			t.Errorf("expected ErrFrozen on second finalize, got %v", err)
		}
		if err := agg.Append(model.Record{}); !errors.Is(err, ErrFrozen) {
			t.Errorf("expected ErrFrozen on append, got %v", err)
		}
	})

	t.Run("concurrent appends", func(t *testing.T) {
		t.Parallel()

		const n = 200
		agg := NewAggregator(n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := agg.Append(model.Record{Index: i}); err != nil {
					t.Errorf("Append(%d) error = %v", i, err)
				}
			}()
		}
		wg.Wait()

		records, err := agg.Finalize()
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		for i, rec := range records {
			if rec.Index != i {
				t.Errorf("slot %d holds record %d", i, rec.Index)
			}
		}
	})
}

// TestRunStop tests the cancellation flag.
func TestRunStop(t *testing.T) {
	t.Parallel()

	run := NewRun(nil, WithDomain("tatacliq.com"), WithRunID("run-1"))
	if run.ID() != "run-1" {
		t.Errorf("unexpected run id %q", run.ID())
	}
	if run.Stopped() {
		t.Fatal("new run must not be stopped")
	}

	if !run.Stop() {
		t.Error("first Stop should report true")
	}
	if run.Stop() {
		t.Error("second Stop should report false")
	}
	if !run.Stopped() || !run.Progress().Stopping {
		t.Error("expected stopped run")
	}

	select {
	case <-run.Done():
	default:
		t.Error("Done channel should be closed after Stop")
	}
}

// TestNewRunGeneratesIDs tests that runs get distinct IDs.
func TestNewRunGeneratesIDs(t *testing.T) {
	t.Parallel()

	a, b := NewRun(nil), NewRun(nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID(), b.ID())
	}
}
