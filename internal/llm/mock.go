package llm

import (
	"context"
	"errors"
	"strings"
)

// MockClient is a test double for the LLM Client interface. With Reply set
// it also serves as the offline "mock" provider.
type MockClient struct {
	Response *Response
	Reply    func(prompt string) string
	Err      error
	Calls    []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Reply != nil {
		return &Response{Content: m.Reply(prompt), Provider: "mock"}, nil
	}
	if m.Response == nil {
		return nil, errors.New("mock: no response configured")
	}
	return m.Response, nil
}

// echoReply answers offline with the last user line of the prompt.
func echoReply(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if said, ok := strings.CutPrefix(lines[i], "User: "); ok {
			return "You said: " + said
		}
	}
	return "..."
}
