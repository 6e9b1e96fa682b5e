package engine

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/lazypower/bitrot/internal/store"
)

// PassResult summarizes one decay or aging pass.
type PassResult struct {
	Scanned      int `json:"scanned"`
	Corrupted    int `json:"corrupted"`
	CharsDeleted int `json:"chars_deleted"`
	Failed       int `json:"failed"`
}

// erode deletes each rune of s independently with probability p. Runes are
// only ever removed, never replaced or reordered.
func erode(rng *rand.Rand, s string, p float64) (string, int) {
	var b strings.Builder
	b.Grow(len(s))
	deleted := 0
	for _, r := range s {
		if rng.Float64() < p {
			deleted++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), deleted
}

// eroder runs a corruption pass over the regular records. DecayEngine and
// AgingEngine differ only in how they pick chance and rate per record.
type eroder struct {
	store store.Store
	rng   *rand.Rand
	emit  func(Event)
	log   *slog.Logger
}

// pass visits regular records oldest first so a fixed seed replays the same
// damage. A record that fails is skipped; the rest of the pass continues.
func (e *eroder) pass(name string, decide func(store.Record) (chance, rate float64)) (PassResult, error) {
	var res PassResult
	recs, err := e.store.List(store.CategoryRegular)
	if err != nil {
		return res, err
	}

	var errs []error
	for _, rec := range recs {
		if rec.Category != store.CategoryRegular {
			continue
		}
		res.Scanned++

		chance, rate := decide(rec)
		if e.rng.Float64() >= chance {
			continue
		}

		content, err := e.store.Read(rec.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			res.Failed++
			e.emit(Event{Kind: EventReadError, RecordID: rec.ID, Detail: err.Error()})
			if !errors.Is(err, store.ErrCorruptedRead) {
				errs = append(errs, err)
			}
			continue
		}

		eroded, deleted := erode(e.rng, content, rate)
		if deleted == 0 {
			continue
		}
		if err := e.store.Rewrite(rec.ID, eroded); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			res.Failed++
			e.log.Warn(name+": rewrite failed", "id", rec.ID, "err", err)
			errs = append(errs, err)
			continue
		}

		res.Corrupted++
		res.CharsDeleted += deleted
		e.emit(Event{Kind: EventCorrupt, RecordID: rec.ID, Detail: name, Chars: deleted})
	}

	if res.Corrupted > 0 || res.Failed > 0 {
		e.log.Info(name+" pass", "scanned", res.Scanned, "corrupted", res.Corrupted,
			"chars_deleted", res.CharsDeleted, "failed", res.Failed)
	}
	return res, errors.Join(errs...)
}
