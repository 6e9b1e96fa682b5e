package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const recordExt = ".txt"

// DirStore keeps one text file per record in a directory. The file name is
// the record id, so category and creation time survive without an index.
type DirStore struct {
	Dir string
	now func() time.Time
	ids idSeq
}

// DefaultDir returns the default memory bank: ~/.bitrot/memory_bank
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".bitrot", "memory_bank"), nil
}

// OpenDir opens (or creates) a directory-backed store.
func OpenDir(dir string, opts ...Option) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	o := buildOptions(opts)
	return &DirStore{Dir: dir, now: o.now}, nil
}

func (s *DirStore) path(id string) string {
	return filepath.Join(s.Dir, id+recordExt)
}

// validID rejects anything that could escape the directory.
func validID(id string) bool {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return false
	}
	_, _, ok := ParseID(id)
	return ok
}

// Write creates the record file exclusively, bumping the collision suffix
// when two writes land in the same microsecond.
func (s *DirStore) Write(content string, cat Category) (string, error) {
	if cat != CategoryCore && cat != CategoryRegular {
		return "", fmt.Errorf("write: unknown category %q", cat)
	}
	s.ids.Lock()
	defer s.ids.Unlock()
	createdAt, first := s.ids.start(cat, s.now())
	for attempt := first; attempt <= maxCollisions; attempt++ {
		id := newID(cat, createdAt, attempt)
		p := s.path(id)
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", persistErr("write", id, err)
		}
		_, werr := f.WriteString(content)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(p)
			return "", persistErr("write", id, werr)
		}
		s.ids.issued(cat, createdAt, attempt)
		return id, nil
	}
	return "", persistErr("write", "", fmt.Errorf("id space exhausted at %s", formatStamp(createdAt)))
}

// Read returns the record content.
func (s *DirStore) Read(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", id, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: %w", id, ErrCorruptedRead)
	}
	return string(data), nil
}

// Rewrite truncates and rewrites an existing regular record. It never
// creates a file.
func (s *DirStore) Rewrite(id, content string) error {
	if !validID(id) {
		return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
	}
	if cat, _, _ := ParseID(id); cat == CategoryCore {
		return fmt.Errorf("rewrite %s: %w", id, ErrProtected)
	}
	f, err := os.OpenFile(s.path(id), os.O_WRONLY|os.O_TRUNC, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("rewrite %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return persistErr("rewrite", id, err)
	}
	_, werr := f.WriteString(content)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return persistErr("rewrite", id, werr)
	}
	return nil
}

// List scans the directory. Files whose names are not record ids are skipped.
func (s *DirStore) List(filter Category) ([]Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, persistErr("list", "", err)
	}

	var recs []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		cat, createdAt, ok := ParseID(id)
		if !ok {
			continue
		}
		if filter != CategoryAny && cat != filter {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		recs = append(recs, Record{
			ID:        id,
			Category:  cat,
			CreatedAt: createdAt,
			Size:      info.Size(),
		})
	}
	SortRecords(recs)
	return recs, nil
}

// Delete removes the record file.
func (s *DirStore) Delete(id string) error {
	if !validID(id) {
		return nil
	}
	err := os.Remove(s.path(id))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return persistErr("delete", id, err)
}

// Close is a no-op; files are closed after every operation.
func (s *DirStore) Close() error { return nil }
