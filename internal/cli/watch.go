package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lazypower/bitrot/internal/store"
)

const debounceDuration = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a status line whenever the memory bank changes",
	RunE:  runWatch,
}

// watchPath is the directory whose changes mean the bank changed.
func watchPath() (string, error) {
	if cfg.Storage.Backend == "sqlite" {
		p := cfg.Storage.DBPath
		if p == "" {
			var err error
			if p, err = store.DefaultDBPath(); err != nil {
				return "", err
			}
		}
		return filepath.Dir(p), nil
	}
	if cfg.Storage.Dir != "" {
		return cfg.Storage.Dir, nil
	}
	return store.DefaultDir()
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(openOpts{noSeed: true})
	if err != nil {
		return err
	}
	defer a.Close()

	dir, err := watchPath()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "watching %s\n", dir)
	printSummary(out, a)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	debounce := newDebounceTimer()
	defer debounce.Stop()
	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			resetDebounceTimer(debounce)
		case <-debounce.C:
			printSummary(out, a)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		case <-interrupt:
			return nil
		}
	}
}

func printSummary(w io.Writer, a *app) {
	infos, err := a.eng.Inspect()
	if err != nil {
		logger.Warn("inspect", "err", err)
		return
	}
	st := a.eng.Summarize(infos)
	fmt.Fprintf(w, "%s core %d  regular %d/%d  %dB  empty %d  unreadable %s\n",
		mutedStyle.Render(time.Now().Format(time.TimeOnly)),
		st.Core, st.Regular, st.MaxRegular, st.Bytes, st.Empty,
		errStyle.Render(fmt.Sprint(st.Unreadable)))
}

// newDebounceTimer returns a stopped timer. Since Go 1.23 Stop and Reset
// discard any pending tick, so no drain is needed.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	return timer
}

func resetDebounceTimer(timer *time.Timer) {
	timer.Reset(debounceDuration)
}
