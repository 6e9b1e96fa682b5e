package engine

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/store"
)

// isSubsequence reports whether every rune of sub appears in s in order.
func isSubsequence(sub, s string) bool {
	rs := []rune(s)
	i := 0
	for _, r := range sub {
		for i < len(rs) && rs[i] != r {
			i++
		}
		if i == len(rs) {
			return false
		}
		i++
	}
	return true
}

func TestErode(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	got, n := erode(rng, "héllo wörld", 0)
	if got != "héllo wörld" || n != 0 {
		t.Errorf("erode p=0 = %q, %d", got, n)
	}
	got, n = erode(rng, "héllo wörld", 1)
	if got != "" || n != 11 {
		t.Errorf("erode p=1 = %q, %d; want empty, 11 runes", got, n)
	}

	in := strings.Repeat("abcdefghij✓", 50)
	got, n = erode(rng, in, 0.5)
	if !isSubsequence(got, in) {
		t.Error("eroded text is not a subsequence of the input")
	}
	if len([]rune(got))+n != len([]rune(in)) {
		t.Errorf("kept %d + deleted %d != %d", len([]rune(got)), n, len([]rune(in)))
	}
}

func TestDecayFullErasure(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend, testConfig())
			content := strings.Repeat("x", 1000)
			regular := f.mustWrite(t, content, store.CategoryRegular)
			core := f.mustWrite(t, content, store.CategoryCore)

			for i := 0; i < 1000; i++ {
				if _, err := f.eng.Decay.ApplyWith(1.0, 1.0); err != nil {
					t.Fatalf("pass %d: %v", i, err)
				}
			}

			got, err := f.store.Read(regular)
			if err != nil {
				t.Fatalf("Read regular: %v", err)
			}
			if got != "" {
				t.Errorf("regular content = %d chars, want empty", len(got))
			}
			got, err = f.store.Read(core)
			if err != nil {
				t.Fatalf("Read core: %v", err)
			}
			if got != content {
				t.Error("core content changed")
			}
			// Emptied records are not deleted.
			if n := f.count(t, store.CategoryRegular); n != 1 {
				t.Errorf("regular count = %d, want 1", n)
			}
		})
	}
}

func TestDecayZeroProbabilityIsNoop(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	id := f.mustWrite(t, "stable", store.CategoryRegular)

	res, err := f.eng.Decay.ApplyWith(0, 1)
	if err != nil {
		t.Fatalf("ApplyWith: %v", err)
	}
	if res.Scanned != 1 || res.Corrupted != 0 {
		t.Errorf("result = %+v", res)
	}
	if got, _ := f.store.Read(id); got != "stable" {
		t.Errorf("content = %q", got)
	}
}

func TestDecayOnlyDeletes(t *testing.T) {
	f := newFixture(t, "dir", testConfig())
	originals := map[string]string{}
	for _, s := range []string{"The quick brown fox", "jumps över the lazy dög", "💾💾 floppy 💾💾"} {
		originals[f.mustWrite(t, s, store.CategoryRegular)] = s
	}

	for i := 0; i < 20; i++ {
		if _, err := f.eng.Decay.ApplyWith(0.5, 0.3); err != nil {
			t.Fatalf("ApplyWith: %v", err)
		}
	}
	for id, orig := range originals {
		got, err := f.store.Read(id)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !isSubsequence(got, orig) {
			t.Errorf("%q is not a subsequence of %q", got, orig)
		}
	}
}

func TestDecayDeterministicWithSeed(t *testing.T) {
	run := func() []string {
		f := newFixture(t, "sqlite", testConfig())
		var ids []string
		for i := 0; i < 10; i++ {
			ids = append(ids, f.mustWrite(t, "a fairly long memory about nothing much", store.CategoryRegular))
		}
		f.eng.Decay.ApplyWith(0.5, 0.2)
		var out []string
		for _, id := range ids {
			c, _ := f.store.Read(id)
			out = append(out, c)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("record %d differs between runs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestDecayRejectsBadProbability(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	if _, err := f.eng.Decay.ApplyWith(1.5, 0.1); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if _, err := f.eng.Decay.ApplyWith(0.1, -1); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestDecayIsolatesUnreadableRecord(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend, testConfig())
			a := f.mustWrite(t, "first", store.CategoryRegular)
			bad := f.mustWrite(t, "second", store.CategoryRegular)
			c := f.mustWrite(t, "third", store.CategoryRegular)
			f.corrupt(t, bad)

			res, err := f.eng.Decay.ApplyWith(1, 1)
			if err != nil {
				t.Fatalf("ApplyWith: %v", err)
			}
			if res.Scanned != 3 || res.Corrupted != 2 || res.Failed != 1 {
				t.Errorf("result = %+v, want 3 scanned, 2 corrupted, 1 failed", res)
			}
			for _, id := range []string{a, c} {
				if got, _ := f.store.Read(id); got != "" {
					t.Errorf("%s = %q, want empty", id, got)
				}
			}
		})
	}
}

func TestDecayRewriteFailureJoined(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	fs := &faultyStore{Store: db, rewriteErr: &store.PersistenceError{Op: "rewrite", Err: errors.New("disk full")}}
	eng, err := New(fs, testConfig(), WithSeed(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	eng.Write("one", store.CategoryRegular)
	eng.Write("two", store.CategoryRegular)

	res, err := eng.Decay.ApplyWith(1, 1)
	if !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if res.Failed != 2 || res.Scanned != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestDecayListFailure(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	fs := &faultyStore{Store: db, listErr: errors.New("io error")}
	eng, err := New(fs, testConfig(), WithSeed(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := eng.RunDecayCycle(); err == nil {
		t.Error("expected list error")
	}
}
