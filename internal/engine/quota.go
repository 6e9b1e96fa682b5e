package engine

import (
	"fmt"
	"log/slog"

	"github.com/lazypower/bitrot/internal/store"
)

// QuotaManager bounds the number of regular records. Core records are
// neither counted nor evicted.
type QuotaManager struct {
	store store.Store
	emit  func(Event)
	log   *slog.Logger
	Max   int
}

// Enforce evicts the oldest regular record (lowest id on ties) if the
// regular count exceeds Max. It evicts at most one record per call and
// returns the evicted id, or "" when nothing was over quota.
func (q *QuotaManager) Enforce() (string, error) {
	recs, err := q.store.List(store.CategoryRegular)
	if err != nil {
		return "", fmt.Errorf("enforce quota: %w", err)
	}
	if len(recs) <= q.Max {
		return "", nil
	}

	store.SortRecords(recs)
	oldest := recs[0].ID
	q.emit(Event{Kind: EventQuotaFull, Detail: fmt.Sprintf("%d/%d regular records", len(recs), q.Max)})

	if err := q.store.Delete(oldest); err != nil {
		q.log.Error("evict failed", "id", oldest, "err", err)
		return "", &store.PersistenceError{Op: "evict", ID: oldest, Err: err}
	}
	q.log.Debug("evicted", "id", oldest, "regular", len(recs)-1, "max", q.Max)
	q.emit(Event{Kind: EventEvict, RecordID: oldest})
	return oldest, nil
}
