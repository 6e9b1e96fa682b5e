package cli

import (
	"fmt"
	"io"

	"github.com/lazypower/bitrot/internal/chat"
	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/metrics"
	"github.com/lazypower/bitrot/internal/seed"
	"github.com/lazypower/bitrot/internal/store"
)

// app is an opened memory bank plus the observers wired to it.
type app struct {
	cfg     config.Config
	eng     *engine.Engine
	store   store.Store
	db      *store.DB // journal; nil when disabled
	metrics *metrics.Metrics
}

type openOpts struct {
	sessionID string
	metrics   bool
	sounds    io.Writer // floppy noises; nil for silence
	noSeed    bool
}

func openStore(c config.Config) (store.Store, *store.DB, error) {
	switch c.Storage.Backend {
	case "sqlite":
		path := c.Storage.DBPath
		if path == "" {
			var err error
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, nil, err
			}
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return db, db, nil
	default:
		dir := c.Storage.Dir
		if dir == "" {
			var err error
			if dir, err = store.DefaultDir(); err != nil {
				return nil, nil, err
			}
		}
		s, err := store.OpenDir(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory bank: %w", err)
		}
		return s, nil, nil
	}
}

func openApp(o openOpts) (*app, error) {
	st, db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: st}

	if cfg.Journal.Enabled {
		if db == nil {
			path := cfg.Storage.DBPath
			if path == "" {
				if path, err = store.DefaultDBPath(); err != nil {
					st.Close()
					return nil, err
				}
			}
			if db, err = store.Open(path); err != nil {
				st.Close()
				return nil, fmt.Errorf("open journal: %w", err)
			}
		}
		a.db = db
	}

	a.eng, err = engine.New(st, cfg, engine.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.db != nil {
		a.eng.Subscribe(&engine.Journal{DB: a.db, SessionID: o.sessionID, Log: logger})
	}
	if o.metrics {
		a.metrics = metrics.New(a.counts)
		a.eng.Subscribe(a.metrics)
	}
	if o.sounds != nil {
		a.eng.Subscribe(&chat.Sounds{Out: o.sounds})
	}

	if cfg.Seed.Auto && !o.noSeed {
		if _, err := a.seed(cfg.Seed.File); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// seed writes the seed set from path, or the built-in one, into a bank
// without core memories.
func (a *app) seed(path string) (int, error) {
	set := seed.Default()
	if path != "" {
		var err error
		if set, err = seed.Load(path); err != nil {
			return 0, err
		}
	}
	return a.eng.Seed(set.Contents())
}

func (a *app) counts() (core, regular int) {
	recs, err := a.store.List(store.CategoryAny)
	if err != nil {
		return 0, 0
	}
	for _, r := range recs {
		if r.Category == store.CategoryCore {
			core++
		} else {
			regular++
		}
	}
	return core, regular
}

// Close releases the store and journal.
func (a *app) Close() error {
	err := a.store.Close()
	if a.db != nil && store.Store(a.db) != a.store {
		if cerr := a.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
