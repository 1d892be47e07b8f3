package intake

import "github.com/nao1215/cliqcrawl/internal/model"

// Stats summarizes a dedupe pass.
type Stats struct {
	// Inputs is the number of entries before dedupe.
	Inputs int `json:"inputs"`

	// Unique is the number of entries after dedupe.
	Unique int `json:"unique"`

	// Valid is the number of valid entries after dedupe.
	Valid int `json:"valid"`

	// Invalid is the number of invalid entries after dedupe.
	Invalid int `json:"invalid"`
}

// Duplicates returns how many entries were dropped.
func (s Stats) Duplicates() int {
	return s.Inputs - s.Unique
}

// Dedupe reduces entries to first-occurrence-unique entries, keeping order.
//
// Valid entries are unique by their normalized key. Invalid entries never
// merge with valid ones; they are keyed on raw+normalized, so only an
// exact repeat of the same invalid input collapses. Dedupe is idempotent.
func Dedupe(entries []model.URLEntry) []model.URLEntry {
	seenValid := make(map[string]bool, len(entries))
	seenInvalid := make(map[string]bool)
	out := make([]model.URLEntry, 0, len(entries))

	for _, e := range entries {
		if e.Valid {
			if seenValid[e.Key] {
				continue
			}
			seenValid[e.Key] = true
		} else {
			k := e.Raw + "\x00" + e.Normalized
			if seenInvalid[k] {
				continue
			}
			seenInvalid[k] = true
		}
		out = append(out, e)
	}
	return out
}

// DedupeWithStats runs Dedupe and reports counts.
func DedupeWithStats(entries []model.URLEntry) ([]model.URLEntry, Stats) {
	out := Dedupe(entries)
	st := Stats{Inputs: len(entries), Unique: len(out)}
	for _, e := range out {
		if e.Valid {
			st.Valid++
		} else {
			st.Invalid++
		}
	}
	return out, st
}

// Prepare validates and deduplicates raw input in one step.
func Prepare(v *Validator, raws []string) ([]model.URLEntry, Stats) {
	return DedupeWithStats(v.ValidateAll(raws))
}
