package store

import (
	"database/sql"
	"fmt"
)

// ChatSession tracks one interactive conversation against the memory bank.
type ChatSession struct {
	ID          int64  `json:"-"`
	SessionID   string `json:"session_id"`
	Model       string `json:"model,omitempty"`
	StartedAt   int64  `json:"started_at"`
	EndedAt     *int64 `json:"ended_at,omitempty"`
	Status      string `json:"status"`
	TurnCount   int    `json:"turn_count"`
	DecayCycles int    `json:"decay_cycles"`
	AgingCycles int    `json:"aging_cycles"`
}

const chatSessionColumns = `id, session_id, model, started_at, ended_at, status, turn_count, decay_cycles, aging_cycles`

func scanChatSession(row interface{ Scan(...any) error }) (*ChatSession, error) {
	var s ChatSession
	var endedAt sql.NullInt64
	if err := row.Scan(&s.ID, &s.SessionID, &s.Model, &s.StartedAt, &endedAt, &s.Status,
		&s.TurnCount, &s.DecayCycles, &s.AgingCycles); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Int64
	}
	return &s, nil
}

// InitChatSession creates or resumes a session. If the session_id already
// exists and is active, it returns the existing session.
func (db *DB) InitChatSession(sessionID, model string) (*ChatSession, error) {
	now := db.now().UnixMilli()

	s, err := scanChatSession(db.QueryRow(`
		SELECT `+chatSessionColumns+`
		FROM chat_sessions WHERE session_id = ? AND status = 'active'
	`, sessionID))
	if err == nil {
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check existing chat session: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO chat_sessions (session_id, model, started_at, status)
		VALUES (?, ?, ?, 'active')
	`, sessionID, model, now)
	if err != nil {
		return nil, fmt.Errorf("insert chat session: %w", err)
	}

	id, _ := result.LastInsertId()
	return &ChatSession{
		ID:        id,
		SessionID: sessionID,
		Model:     model,
		StartedAt: now,
		Status:    "active",
	}, nil
}

// GetChatSession returns a session by its session_id, or nil if unknown.
func (db *DB) GetChatSession(sessionID string) (*ChatSession, error) {
	s, err := scanChatSession(db.QueryRow(`
		SELECT `+chatSessionColumns+`
		FROM chat_sessions WHERE session_id = ?
	`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	return s, nil
}

// RecordTurn bumps the turn counter and, when a decay or aging cycle ran on
// this turn, the matching cycle counter.
func (db *DB) RecordTurn(sessionID string, decayed, aged bool) error {
	_, err := db.Exec(`
		UPDATE chat_sessions
		SET turn_count = turn_count + 1,
		    decay_cycles = decay_cycles + ?,
		    aging_cycles = aging_cycles + ?
		WHERE session_id = ? AND status = 'active'
	`, boolInt(decayed), boolInt(aged), sessionID)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// EndChatSession marks an active session completed.
func (db *DB) EndChatSession(sessionID string) error {
	now := db.now().UnixMilli()
	_, err := db.Exec(`
		UPDATE chat_sessions SET status = 'completed', ended_at = COALESCE(ended_at, ?)
		WHERE session_id = ? AND status = 'active'
	`, now, sessionID)
	if err != nil {
		return fmt.Errorf("end chat session: %w", err)
	}
	return nil
}

// RecentChatSessions returns the most recent sessions, ordered by started_at DESC.
func (db *DB) RecentChatSessions(limit int) ([]ChatSession, error) {
	rows, err := db.Query(`
		SELECT `+chatSessionColumns+`
		FROM chat_sessions ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		s, err := scanChatSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
