package pipeline

import (
	"fmt"
	"sync"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Aggregator stores one record per slot. Slots are preallocated, so the
// final order equals dedupe order no matter which worker finishes first.
// It is safe for concurrent use.
type Aggregator struct {
	mu     sync.Mutex
	slots  []model.Record
	filled []bool
	count  int
	frozen bool
}

// NewAggregator creates an aggregator with n empty slots.
func NewAggregator(n int) *Aggregator {
	return &Aggregator{
		slots:  make([]model.Record, n),
		filled: make([]bool, n),
	}
}

// Append stores rec in the slot given by rec.Index.
func (a *Aggregator) Append(rec model.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frozen {
		return ErrFrozen
	}
	if rec.Index < 0 || rec.Index >= len(a.slots) {
		return fmt.Errorf("%w: %d (slots: %d)", ErrSlotOutOfRange, rec.Index, len(a.slots))
	}
	if a.filled[rec.Index] {
		return fmt.Errorf("%w: %d", ErrDuplicateRecord, rec.Index)
	}

	a.slots[rec.Index] = rec
	a.filled[rec.Index] = true
	a.count++
	return nil
}

// Finalize freezes the aggregator and returns the records in slot order.
// It fails with ErrIncomplete, leaving the aggregator writable, while any
// slot is empty, and with ErrFrozen when called a second time.
func (a *Aggregator) Finalize() ([]model.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frozen {
		return nil, ErrFrozen
	}
	if a.count != len(a.slots) {
		for i, ok := range a.filled {
			if !ok {
				return nil, fmt.Errorf("%w: first empty slot %d of %d", ErrIncomplete, i, len(a.slots))
			}
		}
	}

	a.frozen = true
	out := make([]model.Record, len(a.slots))
	copy(out, a.slots)
	return out, nil
}
