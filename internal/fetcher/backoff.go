package fetcher

import (
	"time"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Delay returns how long to wait after the given number of attempts.
// attempt is 1 after the first failed attempt.
//
//	fixed:  base
//	linear: base * attempt
//
// Unknown strategies fall back to fixed.
func Delay(strategy model.BackoffStrategy, base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	switch strategy {
	case model.BackoffLinear:
		return base * time.Duration(attempt)
	default:
		return base
	}
}
