package store

import (
	"errors"
	"fmt"
)

// Errors returned by record stores.
var (
	ErrNotFound      = errors.New("record not found")
	ErrCorruptedRead = errors.New("record content is not valid utf-8")
	ErrProtected     = errors.New("core record is protected")
	ErrPersistence   = errors.New("persistence failure")
)

// PersistenceError reports a failed write, rewrite, delete or listing at the
// storage layer. It matches ErrPersistence under errors.Is.
type PersistenceError struct {
	Op  string // write, rewrite, delete, list, evict
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func persistErr(op, id string, err error) error {
	return &PersistenceError{Op: op, ID: id, Err: err}
}
