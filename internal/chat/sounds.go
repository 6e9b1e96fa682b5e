package chat

import (
	"fmt"
	"io"

	"github.com/lazypower/bitrot/internal/engine"
)

var sounds = map[engine.EventKind]string{
	engine.EventWrite:      "💾 *write head clicking* 💾",
	engine.EventReadError:  "💾 *error beep* 💾",
	engine.EventWriteError: "💾 *error beep* 💾",
	engine.EventQuotaFull:  "💾 *disk full warning* 💾",
	engine.EventCorrupt:    "💾 *data corruption noise* 💾",
}

// Sounds narrates engine events on the console as floppy drive noises.
type Sounds struct {
	Out io.Writer
}

// Observe implements engine.Observer.
func (s *Sounds) Observe(ev engine.Event) {
	if snd, ok := sounds[ev.Kind]; ok {
		fmt.Fprintln(s.Out, snd)
	}
	switch ev.Kind {
	case engine.EventEvict:
		fmt.Fprintf(s.Out, "💾 Overwrote old memory: %s 💾\n", ev.RecordID)
	case engine.EventCorrupt:
		fmt.Fprintf(s.Out, "💾 Memory corrupted: %s (%d chars lost) 💾\n", ev.RecordID, ev.Chars)
	case engine.EventSeed:
		fmt.Fprintf(s.Out, "💾 Stored core memory: %s\n", ev.RecordID)
	}
}
