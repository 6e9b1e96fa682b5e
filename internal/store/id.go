package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	corePrefix    = "core_"
	regularPrefix = "mem_"

	// stampLen is len("20060102_150405_000000").
	stampLen = 22

	// maxCollisions bounds the _NN suffix so ids stay lexically ordered.
	maxCollisions = 99
)

func prefixFor(cat Category) string {
	if cat == CategoryCore {
		return corePrefix
	}
	return regularPrefix
}

// formatStamp renders t in UTC at microsecond resolution.
func formatStamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

// newID builds the id for the given creation time. attempt > 0 appends a
// collision suffix.
func newID(cat Category, createdAt time.Time, attempt int) string {
	id := prefixFor(cat) + formatStamp(createdAt)
	if attempt > 0 {
		id += fmt.Sprintf("_%02d", attempt)
	}
	return id
}

// idSeq remembers the last id issued per category so a store never hands
// out the same id twice, even after the earlier record was evicted. Ids from
// one store are strictly increasing.
type idSeq struct {
	sync.Mutex
	last map[Category]issuedID
}

type issuedID struct {
	at      time.Time
	attempt int
}

// start returns the stamp and first suffix to try for a write at now.
// A clock that stalls or steps back continues from the last issued stamp.
func (q *idSeq) start(cat Category, now time.Time) (time.Time, int) {
	now = now.Truncate(time.Microsecond)
	last, ok := q.last[cat]
	if !ok || now.After(last.at) {
		return now, 0
	}
	return last.at, last.attempt + 1
}

func (q *idSeq) issued(cat Category, at time.Time, attempt int) {
	if q.last == nil {
		q.last = make(map[Category]issuedID)
	}
	q.last[cat] = issuedID{at: at, attempt: attempt}
}

// parseStamp reads the creation time embedded at the start of s.
func parseStamp(s string) (time.Time, bool) {
	if len(s) < stampLen {
		return time.Time{}, false
	}
	rest := s[stampLen:]
	if rest != "" {
		if rest[0] != '_' {
			return time.Time{}, false
		}
		if _, err := strconv.Atoi(rest[1:]); err != nil {
			return time.Time{}, false
		}
	}
	t, err := time.ParseInLocation("20060102_150405", s[:15], time.UTC)
	if err != nil || s[15] != '_' {
		return time.Time{}, false
	}
	micros, err := strconv.Atoi(s[16:stampLen])
	if err != nil {
		return time.Time{}, false
	}
	return t.Add(time.Duration(micros) * time.Microsecond), true
}

// ParseID recovers category and creation time from an id. Core ids that do
// not carry a stamp (hand-named seed files) parse with a zero time.
func ParseID(id string) (Category, time.Time, bool) {
	switch {
	case strings.HasPrefix(id, corePrefix):
		t, _ := parseStamp(id[len(corePrefix):])
		return CategoryCore, t, true
	case strings.HasPrefix(id, regularPrefix):
		t, ok := parseStamp(id[len(regularPrefix):])
		if !ok {
			return "", time.Time{}, false
		}
		return CategoryRegular, t, true
	default:
		return "", time.Time{}, false
	}
}
