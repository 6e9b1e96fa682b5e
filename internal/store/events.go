package store

import (
	"fmt"
	"unicode/utf8"
)

// maxEventDetailSize caps the detail text kept per journal row.
const maxEventDetailSize = 1024

// Event is one row of the engine event journal.
type Event struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Kind      string `json:"kind"`
	RecordID  string `json:"record_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// AddEvent appends an engine event to the journal. Truncates detail to 1KB
// on a rune boundary.
func (db *DB) AddEvent(sessionID, kind, recordID, detail string) error {
	detail = truncateDetail(detail)

	now := db.now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO events (session_id, kind, record_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, kind, recordID, detail, now)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

func truncateDetail(s string) string {
	if len(s) <= maxEventDetailSize {
		return s
	}
	cut := maxEventDetailSize
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// RecentEvents returns the most recent journal entries, newest first.
func (db *DB) RecentEvents(limit int) ([]Event, error) {
	rows, err := db.Query(`
		SELECT id, session_id, kind, record_id, detail, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.RecordID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecordEvents returns the journal entries for one record in order.
func (db *DB) RecordEvents(recordID string) ([]Event, error) {
	rows, err := db.Query(`
		SELECT id, session_id, kind, record_id, detail, created_at
		FROM events WHERE record_id = ? ORDER BY created_at, id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.RecordID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns how many events of a kind were journaled.
func (db *DB) CountEvents(kind string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM events WHERE kind = ?
	`, kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
