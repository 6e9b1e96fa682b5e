package store

import (
	"errors"
	"os"
	"testing"
	"time"
)

// backend builds a store under a controllable clock plus a helper that
// writes raw bytes behind the store's back.
type backend struct {
	name string
	open func(t *testing.T, now func() time.Time) (Store, func(id string, raw []byte))
}

var backends = []backend{
	{
		name: "dir",
		open: func(t *testing.T, now func() time.Time) (Store, func(string, []byte)) {
			s, err := OpenDir(t.TempDir(), WithClock(now))
			if err != nil {
				t.Fatalf("OpenDir: %v", err)
			}
			return s, func(id string, raw []byte) {
				if err := os.WriteFile(s.path(id), raw, 0644); err != nil {
					t.Fatalf("write raw: %v", err)
				}
			}
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T, now func() time.Time) (Store, func(string, []byte)) {
			db, err := OpenMemory(WithClock(now))
			if err != nil {
				t.Fatalf("OpenMemory: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			return db, func(id string, raw []byte) {
				if _, err := db.Exec(`UPDATE records SET content = ? WHERE id = ?`, raw, id); err != nil {
					t.Fatalf("write raw: %v", err)
				}
			}
		},
	},
}

func tickingClock(start time.Time, step time.Duration) func() time.Time {
	cur := start.Add(-step)
	return func() time.Time {
		cur = cur.Add(step)
		return cur
	}
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWriteReadRoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, tickingClock(epoch, time.Second))

			for _, content := range []string{"hello", "", "héllo wörld ✓\nsecond line"} {
				id, err := s.Write(content, CategoryRegular)
				if err != nil {
					t.Fatalf("Write: %v", err)
				}
				got, err := s.Read(id)
				if err != nil {
					t.Fatalf("Read: %v", err)
				}
				if got != content {
					t.Errorf("Read = %q, want %q", got, content)
				}
			}
		})
	}
}

func TestWriteIDFormat(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			at := time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)
			s, _ := b.open(t, func() time.Time { return at })

			id, err := s.Write("x", CategoryRegular)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if id != "mem_20240301_123045_123456" {
				t.Errorf("regular id = %q", id)
			}
			id, err = s.Write("x", CategoryCore)
			if err != nil {
				t.Fatalf("Write core: %v", err)
			}
			if id != "core_20240301_123045_123456" {
				t.Errorf("core id = %q", id)
			}
		})
	}
}

func TestWriteCollisionSuffix(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, func() time.Time { return epoch })

			seen := map[string]bool{}
			for i := 0; i < 3; i++ {
				id, err := s.Write("same instant", CategoryRegular)
				if err != nil {
					t.Fatalf("Write %d: %v", i, err)
				}
				if seen[id] {
					t.Fatalf("duplicate id %q", id)
				}
				seen[id] = true
			}
			if !seen["mem_20240301_120000_000000_02"] {
				t.Errorf("expected _02 suffix, got %v", seen)
			}

			recs, err := s.List(CategoryRegular)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := []string{
				"mem_20240301_120000_000000",
				"mem_20240301_120000_000000_01",
				"mem_20240301_120000_000000_02",
			}
			for i, r := range recs {
				if r.ID != want[i] {
					t.Errorf("List[%d] = %q, want %q", i, r.ID, want[i])
				}
			}
		})
	}
}

func TestWriteNeverReusesDeletedID(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, func() time.Time { return epoch })

			var ids []string
			for i := 0; i < 3; i++ {
				id, err := s.Write("same instant", CategoryRegular)
				if err != nil {
					t.Fatalf("Write %d: %v", i, err)
				}
				ids = append(ids, id)
			}
			if err := s.Delete(ids[0]); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			id, err := s.Write("later", CategoryRegular)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			if id != "mem_20240301_120000_000000_03" {
				t.Errorf("id = %q, want the next unused suffix", id)
			}
		})
	}
}

func TestWriteIDsIncreaseWhenClockStepsBack(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, tickingClock(epoch, -time.Second))

			prev := ""
			for i := 0; i < 3; i++ {
				id, err := s.Write("x", CategoryRegular)
				if err != nil {
					t.Fatalf("Write %d: %v", i, err)
				}
				if id <= prev {
					t.Errorf("id %q does not sort after %q", id, prev)
				}
				prev = id
			}
		})
	}
}

func TestWriteUnknownCategory(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			if _, err := s.Write("x", CategoryAny); err == nil {
				t.Error("expected error for empty category")
			}
		})
	}
}

func TestReadNotFound(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			_, err := s.Read("mem_20200101_000000_000000")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestReadCorrupted(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, raw := b.open(t, time.Now)
			id, err := s.Write("fine", CategoryRegular)
			if err != nil {
				t.Fatalf("Write: %v", err)
			}
			raw(id, []byte{'o', 'k', 0xff, 0xfe})

			_, err = s.Read(id)
			if !errors.Is(err, ErrCorruptedRead) {
				t.Errorf("err = %v, want ErrCorruptedRead", err)
			}
		})
	}
}

func TestRewrite(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, tickingClock(epoch, time.Second))
			id, _ := s.Write("a much longer original text", CategoryRegular)

			if err := s.Rewrite(id, "short"); err != nil {
				t.Fatalf("Rewrite: %v", err)
			}
			got, _ := s.Read(id)
			if got != "short" {
				t.Errorf("Read after Rewrite = %q, want short", got)
			}
		})
	}
}

func TestRewriteCoreProtected(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			id, _ := s.Write("I am", CategoryCore)

			err := s.Rewrite(id, "I was")
			if !errors.Is(err, ErrProtected) {
				t.Errorf("err = %v, want ErrProtected", err)
			}
			got, _ := s.Read(id)
			if got != "I am" {
				t.Errorf("core content changed to %q", got)
			}
		})
	}
}

func TestRewriteMissingDoesNotCreate(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			id, _ := s.Write("gone soon", CategoryRegular)
			if err := s.Delete(id); err != nil {
				t.Fatalf("Delete: %v", err)
			}

			err := s.Rewrite(id, "back from the dead")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
			if _, err := s.Read(id); !errors.Is(err, ErrNotFound) {
				t.Errorf("record resurrected: %v", err)
			}
		})
	}
}

func TestDeleteIdempotent(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			id, _ := s.Write("x", CategoryRegular)
			if err := s.Delete(id); err != nil {
				t.Fatalf("first Delete: %v", err)
			}
			if err := s.Delete(id); err != nil {
				t.Errorf("second Delete: %v", err)
			}
		})
	}
}

func TestListFilterAndOrder(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, tickingClock(epoch, time.Minute))

			core, _ := s.Write("identity", CategoryCore)
			r1, _ := s.Write("first", CategoryRegular)
			r2, _ := s.Write("second!", CategoryRegular)

			all, err := s.List(CategoryAny)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("List(any) len = %d, want 3", len(all))
			}
			if all[0].ID != core || all[1].ID != r1 || all[2].ID != r2 {
				t.Errorf("order = %v", all)
			}

			regs, _ := s.List(CategoryRegular)
			if len(regs) != 2 {
				t.Fatalf("List(regular) len = %d, want 2", len(regs))
			}
			if regs[1].Size != int64(len("second!")) {
				t.Errorf("Size = %d, want %d", regs[1].Size, len("second!"))
			}
			if !regs[0].CreatedAt.Equal(epoch.Add(time.Minute)) {
				t.Errorf("CreatedAt = %v, want %v", regs[0].CreatedAt, epoch.Add(time.Minute))
			}

			cores, _ := s.List(CategoryCore)
			if len(cores) != 1 || cores[0].Category != CategoryCore {
				t.Errorf("List(core) = %v", cores)
			}
		})
	}
}

func TestListEmpty(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, _ := b.open(t, time.Now)
			recs, err := s.List(CategoryAny)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(recs) != 0 {
				t.Errorf("len = %d, want 0", len(recs))
			}
		})
	}
}

func TestPersistenceErrorMatches(t *testing.T) {
	err := persistErr("evict", "mem_1", os.ErrPermission)
	if !errors.Is(err, ErrPersistence) {
		t.Error("expected errors.Is(err, ErrPersistence)")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("expected errors.Is(err, os.ErrPermission)")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "evict" {
		t.Errorf("errors.As = %+v", pe)
	}
}
