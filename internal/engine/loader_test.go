package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lazypower/bitrot/internal/store"
)

func TestLoadEmptyStore(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend, testConfig())
			got, err := f.eng.Load(3)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != "" {
				t.Errorf("Load = %q, want empty", got)
			}
		})
	}
}

func TestLoadCoreOnly(t *testing.T) {
	f := newFixture(t, "dir", testConfig())
	f.mustWrite(t, "AI: I am Digital Decay", store.CategoryCore)

	got, err := f.eng.Load(3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "AI: I am Digital Decay" {
		t.Errorf("Load = %q, want the core block alone", got)
	}
}

func TestLoadRegularOnly(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	for i := 0; i < 5; i++ {
		f.mustWrite(t, fmt.Sprintf("memory %d", i), store.CategoryRegular)
	}

	blocks, err := f.eng.LoadBlocks(3)
	if err != nil {
		t.Fatalf("LoadBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	for _, b := range blocks {
		if b.Category != store.CategoryRegular {
			t.Errorf("block %s category = %q", b.ID, b.Category)
		}
	}
	if got, _ := f.eng.Load(3); strings.Count(got, "\n") != 2 {
		t.Errorf("Load = %q, want 3 lines", got)
	}
}

func TestLoadComposition(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend, testConfig())
			for i := 0; i < 3; i++ {
				f.mustWrite(t, fmt.Sprintf("AI: core %d", i), store.CategoryCore)
			}
			for i := 0; i < 6; i++ {
				f.mustWrite(t, fmt.Sprintf("regular %d", i), store.CategoryRegular)
			}

			for _, n := range []int{1, 2, 3, 5} {
				blocks, err := f.eng.Loader.Blocks(n)
				if err != nil {
					t.Fatalf("Blocks(%d): %v", n, err)
				}
				if len(blocks) != n {
					t.Fatalf("Blocks(%d) len = %d", n, len(blocks))
				}
				if blocks[0].Category != store.CategoryCore {
					t.Errorf("Blocks(%d)[0] = %q, want core first", n, blocks[0].Category)
				}
				for _, b := range blocks[1:] {
					if b.Category != store.CategoryRegular {
						t.Errorf("Blocks(%d) has extra core block %s", n, b.ID)
					}
				}
			}
		})
	}
}

func TestLoadCappedByRegularCount(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	f.mustWrite(t, "AI: core", store.CategoryCore)
	f.mustWrite(t, "only one", store.CategoryRegular)

	blocks, err := f.eng.Loader.Blocks(5)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Errorf("len = %d, want 2", len(blocks))
	}
}

func TestLoadZeroStillIncludesCore(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	f.mustWrite(t, "AI: core", store.CategoryCore)
	f.mustWrite(t, "regular", store.CategoryRegular)

	blocks, err := f.eng.Loader.Blocks(0)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Category != store.CategoryCore {
		t.Errorf("Blocks(0) = %+v, want the core block only", blocks)
	}
}

func TestLoadDefaultN(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	for i := 0; i < 10; i++ {
		f.mustWrite(t, "r", store.CategoryRegular)
	}
	blocks, err := f.eng.LoadBlocks(0)
	if err != nil {
		t.Fatalf("LoadBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Errorf("len = %d, want default 3", len(blocks))
	}
}

func TestLoadSamplesWithReplacement(t *testing.T) {
	f := newFixture(t, "sqlite", testConfig())
	f.mustWrite(t, "left", store.CategoryRegular)
	f.mustWrite(t, "right", store.CategoryRegular)

	dupes := 0
	for i := 0; i < 200; i++ {
		blocks, err := f.eng.Loader.Blocks(3)
		if err != nil {
			t.Fatalf("Blocks: %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("len = %d, want 2", len(blocks))
		}
		if blocks[0].ID == blocks[1].ID {
			dupes++
		}
	}
	if dupes == 0 {
		t.Error("never drew the same record twice; sampling should be with replacement")
	}
}

func TestLoadPlaceholders(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend, testConfig())
			core := f.mustWrite(t, "AI: core", store.CategoryCore)
			reg := f.mustWrite(t, "regular", store.CategoryRegular)
			f.corrupt(t, core)
			f.corrupt(t, reg)

			var readErrors int
			f.eng.Subscribe(ObserverFunc(func(ev Event) {
				if ev.Kind == EventReadError {
					readErrors++
				}
			}))

			got, err := f.eng.Load(2)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			want := "[CORRUPTED CORE MEMORY - record content is not valid ut]\n" +
				"[CORRUPTED MEMORY BLOCK - ENCODING ERROR]"
			if got != want {
				t.Errorf("Load =\n%s\nwant\n%s", got, want)
			}
			if readErrors != 2 {
				t.Errorf("read_error events = %d, want 2", readErrors)
			}
		})
	}
}

func TestLoadMissingAndGenericPlaceholders(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	fs := &faultyStore{Store: db, readErr: map[string]error{}}
	eng, err := New(fs, testConfig(), WithSeed(9))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gone, _ := eng.Write("evicted meanwhile", store.CategoryRegular)
	fs.readErr[gone] = fmt.Errorf("read %s: %w", gone, store.ErrNotFound)

	blocks, err := eng.Loader.Blocks(1)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if blocks[0].Text != "[MISSING MEMORY BLOCK]" || !errors.Is(blocks[0].Err, store.ErrNotFound) {
		t.Errorf("block = %+v", blocks[0])
	}

	fs.readErr[gone] = errors.New("input/output error on sector 7 of the floppy")
	blocks, _ = eng.Loader.Blocks(1)
	if blocks[0].Text != "[CORRUPTED MEMORY BLOCK - input/output error on sector 7]" {
		t.Errorf("generic placeholder = %q", blocks[0].Text)
	}
}

func TestLoadIsolatesFailures(t *testing.T) {
	f := newFixture(t, "dir", testConfig())
	bad := f.mustWrite(t, "bad", store.CategoryRegular)
	f.mustWrite(t, "good", store.CategoryRegular)
	f.corrupt(t, bad)

	for i := 0; i < 20; i++ {
		blocks, err := f.eng.Loader.Blocks(2)
		if err != nil {
			t.Fatalf("Blocks: %v", err)
		}
		for _, b := range blocks {
			if b.ID != bad && b.Text != "good" {
				t.Errorf("good block = %q", b.Text)
			}
		}
	}
}

func TestJoinTrims(t *testing.T) {
	got := Join([]Block{{Text: "  first"}, {Text: "second\n\n"}, {Text: ""}})
	if got != "first\nsecond" {
		t.Errorf("Join = %q", got)
	}
}
