package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/store"
)

// Engine orchestrates writes, quota eviction, decay, aging and context
// loading over one store. It holds no locks and runs no timers; callers
// drive the cadence and serialize access.
type Engine struct {
	Store  store.Store
	Quota  *QuotaManager
	Decay  *DecayEngine
	Aging  *AgingEngine
	Loader *PriorityLoader

	rng       *rand.Rand
	now       func() time.Time
	log       *slog.Logger
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source shared by every component.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds a fresh PCG source.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = NewRand(seed) }
}

// WithClock overrides the time source used for ages and event stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver subscribes o to engine events.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// NewRand returns a PCG-backed generator. A zero seed draws from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New validates cfg and builds an engine over st.
func New(st store.Store, cfg config.Config, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("new engine: nil store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		Store: st,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand(uint64(cfg.Random.Seed))
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	base := eroder{store: st, rng: e.rng, emit: e.emit, log: e.log}
	e.Quota = &QuotaManager{store: st, emit: e.emit, log: e.log, Max: cfg.Quota.MaxRegular}
	e.Decay = &DecayEngine{
		eroder:          base,
		FileProbability: cfg.Decay.FileProbability,
		CharProbability: cfg.Decay.CharProbability,
	}
	e.Aging = &AgingEngine{eroder: base, AgingConfig: cfg.Aging, now: e.now}
	e.Loader = &PriorityLoader{store: st, rng: e.rng, emit: e.emit, log: e.log, DefaultN: cfg.Loader.DefaultN}
	return e, nil
}

// Subscribe adds an observer.
func (e *Engine) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *Engine) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	for _, o := range e.observers {
		o.Observe(ev)
	}
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

// Write stores content and, for regular records, enforces the quota. An
// empty category means regular. If eviction fails the new id is still
// returned alongside the error.
func (e *Engine) Write(content string, cat store.Category) (string, error) {
	if cat == store.CategoryAny {
		cat = store.CategoryRegular
	}
	id, err := e.Store.Write(content, cat)
	if err != nil {
		e.log.Error("write failed", "category", cat, "err", err)
		e.emit(Event{Kind: EventWriteError, Detail: err.Error()})
		return "", err
	}
	e.log.Debug("wrote memory", "id", id, "category", cat, "bytes", len(content))
	e.emit(Event{Kind: EventWrite, RecordID: id, Detail: string(cat)})

	if cat != store.CategoryRegular {
		return id, nil
	}
	if _, err := e.Quota.Enforce(); err != nil {
		return id, err
	}
	return id, nil
}

// Load assembles up to n memories into prompt context. n <= 0 uses the
// configured default.
func (e *Engine) Load(n int) (string, error) {
	blocks, err := e.LoadBlocks(n)
	if err != nil {
		return "", err
	}
	return Join(blocks), nil
}

// LoadBlocks is Load without the final join.
func (e *Engine) LoadBlocks(n int) ([]Block, error) {
	if n <= 0 {
		n = e.Loader.DefaultN
	}
	return e.Loader.Blocks(n)
}

// Forget deletes a regular record on request. Core records are refused
// with store.ErrProtected and unknown ids with store.ErrNotFound.
func (e *Engine) Forget(id string) error {
	cat, _, ok := store.ParseID(id)
	if !ok {
		return store.ErrNotFound
	}
	if cat == store.CategoryCore {
		return store.ErrProtected
	}
	if _, err := e.Store.Read(id); errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := e.Store.Delete(id); err != nil {
		return err
	}
	e.log.Info("forgot memory", "id", id)
	e.emit(Event{Kind: EventEvict, RecordID: id, Detail: "forget"})
	return nil
}

// RunDecayCycle runs one uniform decay pass.
func (e *Engine) RunDecayCycle() (PassResult, error) {
	return e.Decay.Apply()
}

// RunAgingCycle runs one age-weighted decay pass.
func (e *Engine) RunAgingCycle() (PassResult, error) {
	return e.Aging.Apply()
}

// Seed writes the given contents as core records, but only into a bank
// that has no core records yet. It returns how many were written.
func (e *Engine) Seed(contents []string) (int, error) {
	existing, err := e.Store.List(store.CategoryCore)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	written := 0
	for _, c := range contents {
		id, err := e.Store.Write(c, store.CategoryCore)
		if err != nil {
			return written, fmt.Errorf("seed: %w", err)
		}
		written++
		e.emit(Event{Kind: EventSeed, RecordID: id})
	}
	if written > 0 {
		e.log.Info("seeded core memories", "count", written)
	}
	return written, nil
}
