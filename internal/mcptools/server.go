// Package mcptools exposes the memory engine as MCP tools over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/store"
)

// Server wraps the engine for tool calls. Calls may arrive concurrently;
// mu serializes them onto the single-caller engine.
type Server struct {
	mu  sync.Mutex
	eng *engine.Engine
	mcp *server.MCPServer
}

// New registers the memory tools.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{
		eng: eng,
		mcp: server.NewMCPServer("bitrot", version, server.WithToolCapabilities(true)),
	}

	s.mcp.AddTool(mcp.NewTool("memory_write",
		mcp.WithDescription("Store a memory. Regular memories decay over time and the oldest is overwritten when the bank is full."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to remember")),
		mcp.WithString("category", mcp.Description("regular (default) or core")),
	), s.handleWrite)

	s.mcp.AddTool(mcp.NewTool("memory_load",
		mcp.WithDescription("Recall a sample of memories as prompt context. One core memory is always included when any exist."),
		mcp.WithNumber("n", mcp.Description("Number of memories to recall")),
	), s.handleLoad)

	s.mcp.AddTool(mcp.NewTool("memory_decay",
		mcp.WithDescription("Run one uniform decay pass over regular memories."),
		mcp.WithNumber("file_probability", mcp.Description("Chance each memory is touched (0-1)")),
		mcp.WithNumber("char_probability", mcp.Description("Chance each character is lost (0-1)")),
	), s.handleDecay)

	s.mcp.AddTool(mcp.NewTool("memory_age",
		mcp.WithDescription("Run one age-weighted corruption pass; older memories rot faster."),
	), s.handleAge)

	return s
}

// ServeStdio blocks serving tool calls on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) handleWrite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	content, _ := args["content"].(string)
	if content == "" {
		return mcp.NewToolResultError("content is required"), nil
	}
	cat := store.CategoryRegular
	if c, _ := args["category"].(string); c != "" {
		parsed, err := store.ParseCategory(c)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cat = parsed
	}

	s.mu.Lock()
	id, err := s.eng.Write(content, cat)
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("write error: %v", err)), nil
	}
	return jsonResult(map[string]string{"id": id, "category": string(cat)}), nil
}

func (s *Server) handleLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	n := 0
	if v, ok := args["n"].(float64); ok && v > 0 {
		n = int(v)
	}

	s.mu.Lock()
	text, err := s.eng.Load(n)
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load error: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDecay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	s.mu.Lock()
	defer s.mu.Unlock()

	f, c := s.eng.Decay.FileProbability, s.eng.Decay.CharProbability
	if v, ok := args["file_probability"].(float64); ok {
		f = v
	}
	if v, ok := args["char_probability"].(float64); ok {
		c = v
	}
	res, err := s.eng.Decay.ApplyWith(f, c)
	if err != nil && res.Scanned == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("decay error: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleAge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	res, err := s.eng.RunAgingCycle()
	s.mu.Unlock()
	if err != nil && res.Scanned == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("aging error: %v", err)), nil
	}
	return jsonResult(res), nil
}
