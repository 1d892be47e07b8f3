package pipeline

import "errors"

var (
	// ErrSlotOutOfRange is returned when a record index has no slot.
	ErrSlotOutOfRange = errors.New("record index out of range")

	// ErrDuplicateRecord is returned when a slot is written twice.
	ErrDuplicateRecord = errors.New("record slot already filled")

	// ErrFrozen is returned when the aggregator is used after Finalize.
	ErrFrozen = errors.New("aggregator is frozen")

	// ErrIncomplete is returned by Finalize when a slot is still empty.
	ErrIncomplete = errors.New("aggregator has empty slots")
)
