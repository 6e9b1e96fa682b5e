package engine

import (
	"errors"
	"strings"
	"unicode"

	"github.com/lazypower/bitrot/internal/store"
)

const previewLen = 50

// RecordInfo is a diagnostic view of one record.
type RecordInfo struct {
	store.Record
	AgeDays    float64 `json:"age_days"`
	Preview    string  `json:"preview"`
	Readable   bool    `json:"readable"`
	Corruption float64 `json:"corruption"` // share of non-printable runes
	Error      string  `json:"error,omitempty"`
}

// Stats totals a bank.
type Stats struct {
	Core       int   `json:"core"`
	Regular    int   `json:"regular"`
	MaxRegular int   `json:"max_regular"`
	Bytes      int64 `json:"bytes"`
	Empty      int   `json:"empty"`
	Unreadable int   `json:"unreadable"`
}

// Inspect reads every record and reports its health. It never mutates the
// store and emits no events.
func (e *Engine) Inspect() ([]RecordInfo, error) {
	recs, err := e.Store.List(store.CategoryAny)
	if err != nil {
		return nil, err
	}

	now := e.now()
	infos := make([]RecordInfo, 0, len(recs))
	for _, rec := range recs {
		info := RecordInfo{Record: rec}
		if !rec.CreatedAt.IsZero() {
			info.AgeDays = AgeDays(now, rec.CreatedAt)
		}

		content, err := e.Store.Read(rec.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			continue
		case err != nil:
			info.Error = err.Error()
		default:
			info.Readable = true
			info.Preview = Preview(content)
			info.Corruption = NonPrintableShare(content)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Summarize totals a set of inspected records.
func (e *Engine) Summarize(infos []RecordInfo) Stats {
	s := Stats{MaxRegular: e.Quota.Max}
	for _, in := range infos {
		if in.Category == store.CategoryCore {
			s.Core++
		} else {
			s.Regular++
		}
		s.Bytes += in.Size
		if in.Size == 0 {
			s.Empty++
		}
		if !in.Readable {
			s.Unreadable++
		}
	}
	return s
}

// Preview returns the first line of s, cut to 50 runes.
func Preview(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	if r := []rune(line); len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return line
}

// NonPrintableShare is the fraction of runes in s that are neither
// printable nor ordinary whitespace.
func NonPrintableShare(s string) float64 {
	total, bad := 0, 0
	for _, r := range s {
		total++
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			bad++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}
