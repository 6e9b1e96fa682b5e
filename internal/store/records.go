package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Write inserts a record stamped with the store clock. Content is stored as
// a BLOB so bytes that are not valid UTF-8 surface on Read, not on Write.
func (db *DB) Write(content string, cat Category) (string, error) {
	if cat != CategoryCore && cat != CategoryRegular {
		return "", fmt.Errorf("write: unknown category %q", cat)
	}
	db.ids.Lock()
	defer db.ids.Unlock()
	createdAt, first := db.ids.start(cat, db.now())
	for attempt := first; attempt <= maxCollisions; attempt++ {
		id := newID(cat, createdAt, attempt)
		res, err := db.Exec(`
			INSERT OR IGNORE INTO records (id, category, content, created_at)
			VALUES (?, ?, ?, ?)
		`, id, string(cat), []byte(content), createdAt.UnixMicro())
		if err != nil {
			return "", persistErr("write", id, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			db.ids.issued(cat, createdAt, attempt)
			return id, nil
		}
	}
	return "", persistErr("write", "", fmt.Errorf("id space exhausted at %s", formatStamp(createdAt)))
}

// Read returns the record content.
func (db *DB) Read(id string) (string, error) {
	var content []byte
	err := db.QueryRow(`SELECT content FROM records WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", id, err)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("read %s: %w", id, ErrCorruptedRead)
	}
	return string(content), nil
}

// Rewrite replaces the content of a regular record.
func (db *DB) Rewrite(id, content string) error {
	var cat string
	err := db.QueryRow(`SELECT category FROM records WHERE id = ?`, id).Scan(&cat)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return persistErr("rewrite", id, err)
	}
	if Category(cat) == CategoryCore {
		return fmt.Errorf("rewrite %s: %w", id, ErrProtected)
	}

	res, err := db.Exec(`
		UPDATE records SET content = ? WHERE id = ? AND category = 'regular'
	`, []byte(content), id)
	if err != nil {
		return persistErr("rewrite", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns record metadata ordered by created_at, then id.
func (db *DB) List(filter Category) ([]Record, error) {
	query := `SELECT id, category, created_at, length(content) FROM records`
	var args []any
	if filter != CategoryAny {
		query += ` WHERE category = ?`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, persistErr("list", "", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var cat string
		var micros int64
		if err := rows.Scan(&r.ID, &cat, &micros, &r.Size); err != nil {
			return nil, persistErr("list", "", fmt.Errorf("scan record: %w", err))
		}
		r.Category = Category(cat)
		r.CreatedAt = time.UnixMicro(micros).UTC()
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list", "", err)
	}
	return recs, nil
}

// Delete removes a record. Deleting a missing id succeeds.
func (db *DB) Delete(id string) error {
	if _, err := db.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return persistErr("delete", id, err)
	}
	return nil
}
