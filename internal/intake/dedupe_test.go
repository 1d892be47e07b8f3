package intake

import (
	"reflect"
	"testing"

	"github.com/nao1215/cliqcrawl/internal/model"
)

func TestDedupe(t *testing.T) {
	t.Parallel()

	v := NewValidator("tatacliq.com")

	t.Run("collapses duplicates keeping first occurrence", func(t *testing.T) {
		t.Parallel()

		in := v.ValidateAll([]string{
			"tatacliq.com/p/2",
			"tatacliq.com/p/1",
			"https://www.tatacliq.com/p/2/",
			"tatacliq.com/p/3",
		})
		out := Dedupe(in)

		if len(out) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(out))
		}
		wantPos := []int{0, 1, 3}
		for i, e := range out {
			if e.Position != wantPos[i] {
				t.Errorf("entry %d: expected position %d, got %d", i, wantPos[i], e.Position)
			}
		}
	})

	t.Run("keeps distinct invalid entries", func(t *testing.T) {
		t.Parallel()

		in := v.ValidateAll([]string{"bad-url", "other-bad", "bad-url", "othersite.com/x"})
		out := Dedupe(in)

		if len(out) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(out))
		}
		for _, e := range out {
			if e.Valid {
				t.Errorf("unexpected valid entry %q", e.Raw)
			}
		}
	})

	t.Run("invalid never merges with valid", func(t *testing.T) {
		t.Parallel()

		valid := model.URLEntry{Raw: "x", Normalized: "https://tatacliq.com/x", Key: "tatacliq.com/x", Valid: true}
		invalid := model.URLEntry{Raw: "x", Normalized: "https://tatacliq.com/x", Key: "tatacliq.com/x", Error: "boom"}
		out := Dedupe([]model.URLEntry{valid, invalid})

		if len(out) != 2 {
			t.Errorf("expected 2 entries, got %d", len(out))
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		in := v.ValidateAll([]string{"tatacliq.com/a", "tatacliq.com/a", "bad", "bad", "tatacliq.com/b"})
		once := Dedupe(in)
		twice := Dedupe(once)

		if !reflect.DeepEqual(once, twice) {
			t.Errorf("dedupe not idempotent:\n%v\n%v", once, twice)
		}
	})

	t.Run("never grows the input", func(t *testing.T) {
		t.Parallel()

		inputs := [][]string{
			{},
			{"tatacliq.com/a"},
			{"a", "a", "a"},
			{"tatacliq.com/a", "TATACLIQ.com/a", "tatacliq.com/a#x"},
		}
		for _, raws := range inputs {
			out := Dedupe(v.ValidateAll(raws))
			if len(out) > len(raws) {
				t.Errorf("dedupe grew %v to %d entries", raws, len(out))
			}
			for _, e := range out {
				if raws[e.Position] != e.Raw {
					t.Errorf("entry %q does not trace back to input position %d", e.Raw, e.Position)
				}
			}
		}
	})
}

func TestPrepareScenario(t *testing.T) {
	t.Parallel()

	v := NewValidator("tatacliq.com")
	entries, stats := Prepare(v, []string{
		"tatacliq.com/p/1",
		"tatacliq.com/p/1",
		"bad-url",
		"othersite.com/x",
	})

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if stats.Valid != 1 || stats.Invalid != 2 {
		t.Errorf("expected 1 valid and 2 invalid, got %+v", stats)
	}
	if stats.Duplicates() != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates())
	}
	if entries[1].Error != ReasonMalformed {
		t.Errorf("expected bad-url to be malformed, got %q", entries[1].Error)
	}
	if entries[2].Error != ReasonDomainMismatch {
		t.Errorf("expected othersite.com to be a domain mismatch, got %q", entries[2].Error)
	}
}
