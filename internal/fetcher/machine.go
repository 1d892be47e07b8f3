package fetcher

import "github.com/nao1215/cliqcrawl/internal/model"

// State is a step in the per-task retry state machine.
type State int

const (
	// StatePending means no attempt has started yet.
	StatePending State = iota

	// StateAttempting means a request is about to be made or in flight.
	StateAttempting

	// StateRetryWait means the machine is sleeping before the next attempt.
	StateRetryWait

	// StateSucceeded is terminal: an attempt returned 2xx.
	StateSucceeded

	// StateFailed is terminal: a fatal outcome, exhausted retries, or a stop
	// observed while retrying.
	StateFailed

	// StateCancelled is terminal: a stop was observed before any attempt.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateRetryWait:
		return "retry_wait"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Event is the input to a transition.
type Event struct {
	// Outcome is the result of the attempt that just finished.
	// Only read in StateAttempting.
	Outcome model.FetchOutcome

	// Attempt is the 1-based number of the attempt that just finished.
	Attempt int

	// MaxRetries is the number of additional attempts allowed.
	MaxRetries int

	// Stopped reports whether the run's stop flag is set.
	Stopped bool
}

// Next returns the state following s for event ev. It has no side effects.
func Next(s State, ev Event) State {
	switch s {
	case StatePending:
		if ev.Stopped {
			return StateCancelled
		}
		return StateAttempting

	case StateAttempting:
		switch ev.Outcome.Kind {
		case model.OutcomeSuccess:
			return StateSucceeded
		case model.OutcomeRetryable:
			if ev.Attempt > ev.MaxRetries || ev.Stopped {
				return StateFailed
			}
			return StateRetryWait
		default:
			return StateFailed
		}

	case StateRetryWait:
		if ev.Stopped {
			return StateFailed
		}
		return StateAttempting

	default:
		return s
	}
}
