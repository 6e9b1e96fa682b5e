// Package chat is the interactive loop that drives the memory engine: it
// recalls context, asks the model, logs the exchange and stores it back.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/llm"
	"github.com/lazypower/bitrot/internal/store"
)

const logTimeLayout = "2006-01-02 15:04:05.000000"

// Session is one conversation. Decay and aging run on interaction counts,
// never on timers.
type Session struct {
	ID      string
	Engine  *engine.Engine
	LLM     llm.Client
	Journal *store.DB // optional; records turn and cycle counts
	Log     *slog.Logger

	DecayEvery int
	AgingEvery int
	LoadN      int
	LogPath    string // transcript file; empty disables it

	Out io.Writer
	now func() time.Time

	turns int
}

// NewSession builds a session from the chat config.
func NewSession(id string, eng *engine.Engine, client llm.Client, cfg config.ChatConfig) *Session {
	return &Session{
		ID:         id,
		Engine:     eng,
		LLM:        client,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		DecayEvery: cfg.DecayEvery,
		AgingEvery: cfg.AgingEvery,
		LogPath:    cfg.LogPath,
		Out:        os.Stdout,
		now:        time.Now,
	}
}

// Turns returns the number of interactions counted so far, blank ones
// included.
func (s *Session) Turns() int { return s.turns }

// Turn runs one interaction and returns the model's reply.
func (s *Session) Turn(ctx context.Context, input string) (string, error) {
	s.advance()
	fmt.Fprintln(s.Out, "💾 *read head seeking* 💾")
	return s.recall(ctx, input)
}

// advance counts one interaction and runs whichever cycles fall due on it.
func (s *Session) advance() {
	s.turns++
	decayed := s.DecayEvery > 0 && s.turns%s.DecayEvery == 0
	aged := s.AgingEvery > 0 && s.turns%s.AgingEvery == 0

	if decayed {
		fmt.Fprintln(s.Out, "\n💾 *simulating memory decay* 💾")
		if _, err := s.Engine.RunDecayCycle(); err != nil {
			s.Log.Warn("decay cycle", "err", err)
		}
	}
	if aged {
		fmt.Fprintln(s.Out, "\n💾 *simulating age-based corruption* 💾")
		if _, err := s.Engine.RunAgingCycle(); err != nil {
			s.Log.Warn("aging cycle", "err", err)
		}
	}
	if s.Journal != nil {
		if err := s.Journal.RecordTurn(s.ID, decayed, aged); err != nil {
			s.Log.Warn("record turn", "err", err)
		}
	}
}

func (s *Session) recall(ctx context.Context, input string) (string, error) {
	memory, err := s.Engine.Load(s.LoadN)
	if err != nil {
		s.Log.Warn("load memory", "err", err)
	}

	resp, err := s.LLM.Complete(ctx, llm.ComposePrompt(memory, input))
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	if resp == nil {
		return "", errors.New("complete: empty response")
	}
	reply := strings.TrimSpace(resp.Content)

	if err := s.appendLog(input, reply); err != nil {
		s.Log.Warn("append chat log", "err", err)
	}
	if _, err := s.Engine.Write(llm.MemoryRecord(input, reply), store.CategoryRegular); err != nil {
		s.Log.Warn("store memory", "err", err)
	}
	return reply, nil
}

func (s *Session) appendLog(input, reply string) error {
	if s.LogPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.LogPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.LogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "[%s]\nUser: %s\nAI: %s\n\n", s.now().Format(logTimeLayout), input, reply)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Run reads lines from in until EOF or "exit"/"quit". A failed completion
// is reported and the loop continues.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.Out, "🧠 DIGITAL DECAY: REPL MODE (type 'exit' to quit)")
	fmt.Fprintln(s.Out, "💾 Core identity memories will be preserved")
	fmt.Fprintln(s.Out, "💾 Regular memories will decay and corrupt over time")
	fmt.Fprintln(s.Out, strings.Repeat("=", 60))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.Out, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "exit", "quit":
			return s.shutdown()
		case "":
			s.advance()
			continue
		}

		reply, err := s.Turn(ctx, input)
		if err != nil {
			fmt.Fprintf(s.Out, "💾 *error beep* 💾 %v\n", err)
			continue
		}
		fmt.Fprintf(s.Out, "AI: %s\n\n", reply)

		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return s.shutdown()
}

func (s *Session) shutdown() error {
	fmt.Fprintln(s.Out, "\n💾 Shutting down digital decay system...")
	fmt.Fprintln(s.Out, "💾 Core memories preserved for next session")
	if s.Journal != nil {
		return s.Journal.EndChatSession(s.ID)
	}
	return nil
}
