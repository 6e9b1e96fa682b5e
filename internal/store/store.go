package store

import (
	"fmt"
	"sort"
	"time"
)

// Category separates protected identity records from ordinary ones.
type Category string

const (
	// CategoryAny is the List filter that matches every record.
	CategoryAny     Category = ""
	CategoryCore    Category = "core"
	CategoryRegular Category = "regular"
)

// ParseCategory accepts "core" or "regular".
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryCore, CategoryRegular:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Record describes a stored memory. List fills everything except Content.
type Record struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// Store persists and enumerates records. Implementations assume a single
// caller and do no locking.
type Store interface {
	// Write creates a record stamped with the store clock and returns its id.
	Write(content string, cat Category) (string, error)

	// Read returns the content of a record.
	Read(id string) (string, error)

	// Rewrite replaces the content of an existing regular record.
	Rewrite(id, content string) error

	// List returns living records ordered by CreatedAt, then ID.
	List(filter Category) ([]Record, error)

	// Delete removes a record. Missing ids are not an error.
	Delete(id string) error

	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// SortRecords orders records oldest first with ties broken by id.
func SortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
