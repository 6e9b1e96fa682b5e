package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/lazypower/bitrot/internal/store"
)

// Placeholders substituted for blocks that cannot be read.
const (
	placeholderEncoding = "[CORRUPTED MEMORY BLOCK - ENCODING ERROR]"
	placeholderMissing  = "[MISSING MEMORY BLOCK]"

	maxReasonLen = 30
)

// Block is one selected memory. Text holds the content, or a placeholder
// when Err is set.
type Block struct {
	ID       string         `json:"id"`
	Category store.Category `json:"category"`
	Text     string         `json:"text"`
	Err      error          `json:"-"`
}

// PriorityLoader samples memories for prompt context. When any core record
// exists, exactly one is always included.
type PriorityLoader struct {
	store    store.Store
	rng      *rand.Rand
	emit     func(Event)
	log      *slog.Logger
	DefaultN int
}

// Blocks selects up to n blocks: one uniformly chosen core record if any
// exist, then min(n-1, |regular|) regular records drawn with replacement.
// Read failures become placeholders and never abort the selection.
func (l *PriorityLoader) Blocks(n int) ([]Block, error) {
	recs, err := l.store.List(store.CategoryAny)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	var core, regular []store.Record
	for _, r := range recs {
		if r.Category == store.CategoryCore {
			core = append(core, r)
		} else {
			regular = append(regular, r)
		}
	}

	var blocks []Block
	remaining := n
	if len(core) > 0 {
		rec := core[l.rng.IntN(len(core))]
		blocks = append(blocks, l.block(rec))
		remaining = n - 1
	}

	if len(regular) > 0 && remaining > 0 {
		k := min(remaining, len(regular))
		for range k {
			rec := regular[l.rng.IntN(len(regular))]
			blocks = append(blocks, l.block(rec))
		}
	}
	return blocks, nil
}

// Load joins the selected blocks, one per line, trimmed.
func (l *PriorityLoader) Load(n int) (string, error) {
	blocks, err := l.Blocks(n)
	if err != nil {
		return "", err
	}
	return Join(blocks), nil
}

// Join renders blocks the way Load does.
func Join(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		b.WriteString(blk.Text)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func (l *PriorityLoader) block(rec store.Record) Block {
	blk := Block{ID: rec.ID, Category: rec.Category}
	content, err := l.store.Read(rec.ID)
	if err == nil {
		blk.Text = content
		return blk
	}

	blk.Err = err
	blk.Text = placeholder(rec.Category, err)
	l.log.Debug("unreadable memory block", "id", rec.ID, "err", err)
	l.emit(Event{Kind: EventReadError, RecordID: rec.ID, Detail: err.Error()})
	return blk
}

func placeholder(cat store.Category, err error) string {
	if cat == store.CategoryCore {
		return fmt.Sprintf("[CORRUPTED CORE MEMORY - %s]", reason(err))
	}
	switch {
	case errors.Is(err, store.ErrCorruptedRead):
		return placeholderEncoding
	case errors.Is(err, store.ErrNotFound):
		return placeholderMissing
	default:
		return fmt.Sprintf("[CORRUPTED MEMORY BLOCK - %s]", reason(err))
	}
}

// reason is a short description of err, preferring the sentinel text over
// the wrapped path so placeholders stay readable.
func reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{store.ErrCorruptedRead, store.ErrNotFound} {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}
	if r := []rune(msg); len(r) > maxReasonLen {
		msg = string(r[:maxReasonLen])
	}
	return msg
}
