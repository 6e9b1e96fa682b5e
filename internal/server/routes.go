package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/store"
)

// statusFor maps engine and store errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrProtected):
		return http.StatusConflict
	case errors.Is(err, store.ErrCorruptedRead):
		return http.StatusUnprocessableEntity
	case errors.Is(err, config.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cat := store.CategoryRegular
	if req.Category != "" {
		c, err := store.ParseCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cat = c
	}

	s.mu.Lock()
	id, err := s.eng.Write(req.Content, cat)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("write failed", "id", id, "err", err)
		resp := map[string]string{"error": err.Error()}
		if id != "" {
			resp["id"] = id
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "category": string(cat)})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	n := intParam(r, "n", 0)

	s.mu.Lock()
	blocks, err := s.eng.LoadBlocks(n)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"context": engine.Join(blocks),
		"blocks":  blocks,
	})
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileProbability *float64 `json:"file_probability"`
		CharProbability *float64 `json:"char_probability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s.mu.Lock()
	f, c := s.eng.Decay.FileProbability, s.eng.Decay.CharProbability
	if req.FileProbability != nil {
		f = *req.FileProbability
	}
	if req.CharProbability != nil {
		c = *req.CharProbability
	}
	res, err := s.eng.Decay.ApplyWith(f, c)
	s.mu.Unlock()

	s.writePass(w, r, res, err)
}

func (s *Server) handleAging(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res, err := s.eng.RunAgingCycle()
	s.mu.Unlock()

	s.writePass(w, r, res, err)
}

// writePass reports a pass result. Per-record failures are already counted
// in res, so a joined error still answers 200 with the message attached.
func (s *Server) writePass(w http.ResponseWriter, r *http.Request, res engine.PassResult, err error) {
	if err != nil && res.Scanned == 0 {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{"result": res}
	if err != nil {
		s.log.Warn("pass finished with errors", "path", r.URL.Path, "err", err)
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	var filter store.Category
	if c := r.URL.Query().Get("category"); c != "" {
		cat, err := store.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = cat
	}

	s.mu.Lock()
	infos, err := s.eng.Inspect()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]engine.RecordInfo, 0, len(infos))
	for _, in := range infos {
		if filter == store.CategoryAny || in.Category == filter {
			out = append(out, in)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "records": out})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cat, created, ok := store.ParseID(id)
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}

	s.mu.Lock()
	content, err := s.eng.Store.Read(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Record{
		ID:        id,
		Category:  cat,
		Content:   content,
		CreatedAt: created,
		Size:      int64(len(content)),
	})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	err := s.eng.Forget(id)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	infos, err := s.eng.Inspect()
	var stats engine.Stats
	if err == nil {
		stats = s.eng.Summarize(infos)
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, "journal not enabled")
		return
	}
	limit := intParam(r, "limit", 50)
	if limit <= 0 {
		limit = 50
	}

	var (
		events []store.Event
		err    error
	)
	s.mu.Lock()
	if id := r.URL.Query().Get("record"); id != "" {
		events, err = s.journal.RecordEvents(id)
	} else {
		events, err = s.journal.RecentEvents(limit)
	}
	s.mu.Unlock()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(events), "events": events})
}
