package store

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestAddEvent(t *testing.T) {
	db := memDB(t)

	if err := db.AddEvent("sess-001", "write", "mem_20240101_000000_000000", "12 bytes"); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}
	e := events[0]
	if e.SessionID != "sess-001" || e.Kind != "write" || e.Detail != "12 bytes" {
		t.Errorf("event = %+v", e)
	}
}

func TestAddEventTruncatesDetail(t *testing.T) {
	db := memDB(t)

	if err := db.AddEvent("", "corrupt", "", strings.Repeat("x", 5000)); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	events, err := db.RecentEvents(1)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events[0].Detail) != maxEventDetailSize {
		t.Errorf("detail len = %d, want %d", len(events[0].Detail), maxEventDetailSize)
	}
}

func TestAddEventTruncatesOnRuneBoundary(t *testing.T) {
	db := memDB(t)

	// Two-byte runes start at odd offsets, so byte 1024 is mid-rune.
	detail := "x" + strings.Repeat("é", 600)
	if err := db.AddEvent("", "corrupt", "", detail); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	events, err := db.RecentEvents(1)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	got := events[0].Detail
	if !utf8.ValidString(got) {
		t.Errorf("detail is not valid UTF-8")
	}
	if len(got) != maxEventDetailSize-1 || !strings.HasPrefix(detail, got) {
		t.Errorf("detail len = %d, want %d", len(got), maxEventDetailSize-1)
	}
}

func TestRecentEventsNewestFirst(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db, err := OpenMemory(WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	for _, kind := range []string{"write", "evict", "corrupt"} {
		if err := db.AddEvent("", kind, "", ""); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
		now = now.Add(time.Second)
	}

	events, err := db.RecentEvents(2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Kind != "corrupt" || events[1].Kind != "evict" {
		t.Errorf("order = %s, %s; want corrupt, evict", events[0].Kind, events[1].Kind)
	}
}

func TestRecordEventsAndCount(t *testing.T) {
	db := memDB(t)

	id := "mem_20240101_000000_000000"
	db.AddEvent("", "write", id, "")
	db.AddEvent("", "corrupt", id, "3 chars")
	db.AddEvent("", "corrupt", "mem_20240101_000000_000001", "1 chars")

	events, err := db.RecordEvents(id)
	if err != nil {
		t.Fatalf("RecordEvents: %v", err)
	}
	if len(events) != 2 || events[0].Kind != "write" || events[1].Kind != "corrupt" {
		t.Errorf("RecordEvents = %+v", events)
	}

	n, err := db.CountEvents("corrupt")
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 2 {
		t.Errorf("CountEvents(corrupt) = %d, want 2", n)
	}
}
