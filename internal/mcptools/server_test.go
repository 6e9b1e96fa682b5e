package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/store"
)

func testServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Random.Seed = 5
	eng, err := engine.New(db, cfg)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return New(eng, "test"), db
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func TestWriteAndLoad(t *testing.T) {
	s, db := testServer(t)
	ctx := context.Background()

	res, err := s.handleWrite(ctx, call(map[string]any{"content": "AI: I am core", "category": "core"}))
	if err != nil || res.IsError {
		t.Fatalf("write core: %v %s", err, text(t, res))
	}
	res, _ = s.handleWrite(ctx, call(map[string]any{"content": "User: hi"}))
	var out map[string]string
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(out["id"], "mem_") {
		t.Errorf("id = %q", out["id"])
	}

	res, _ = s.handleLoad(ctx, call(map[string]any{"n": float64(2)}))
	if got := text(t, res); !strings.HasPrefix(got, "AI: I am core") {
		t.Errorf("load = %q", got)
	}

	recs, _ := db.List(store.CategoryAny)
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
}

func TestWriteValidation(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	res, _ := s.handleWrite(ctx, call(map[string]any{}))
	if !res.IsError {
		t.Error("expected error for missing content")
	}
	res, _ = s.handleWrite(ctx, call(map[string]any{"content": "x", "category": "archive"}))
	if !res.IsError {
		t.Error("expected error for unknown category")
	}
}

func TestDecayTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()
	s.handleWrite(ctx, call(map[string]any{"content": "abcd"}))

	res, _ := s.handleDecay(ctx, call(map[string]any{"file_probability": 1.0, "char_probability": 1.0}))
	if res.IsError {
		t.Fatalf("decay: %s", text(t, res))
	}
	var pr engine.PassResult
	json.Unmarshal([]byte(text(t, res)), &pr)
	if pr.Corrupted != 1 || pr.CharsDeleted != 4 {
		t.Errorf("result = %+v", pr)
	}

	res, _ = s.handleDecay(ctx, call(map[string]any{"file_probability": 2.0}))
	if !res.IsError {
		t.Error("expected error for out-of-range probability")
	}
}

func TestAgeTool(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()
	s.handleWrite(ctx, call(map[string]any{"content": "fresh"}))

	res, _ := s.handleAge(ctx, call(nil))
	if res.IsError {
		t.Fatalf("age: %s", text(t, res))
	}
	var pr engine.PassResult
	json.Unmarshal([]byte(text(t, res)), &pr)
	if pr.Scanned != 1 {
		t.Errorf("result = %+v", pr)
	}
}
