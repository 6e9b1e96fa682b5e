package engine

import (
	"fmt"
	"log/slog"

	"github.com/lazypower/bitrot/internal/store"
)

// Journal writes engine events to the database event log.
type Journal struct {
	DB        *store.DB
	SessionID string
	Log       *slog.Logger
}

// Observe implements Observer. Journal failures are logged and dropped.
func (j *Journal) Observe(ev Event) {
	detail := ev.Detail
	if ev.Kind == EventCorrupt {
		detail = fmt.Sprintf("%s: %d chars", ev.Detail, ev.Chars)
	}
	if err := j.DB.AddEvent(j.SessionID, string(ev.Kind), ev.RecordID, detail); err != nil && j.Log != nil {
		j.Log.Warn("journal event dropped", "kind", ev.Kind, "err", err)
	}
}
