package llm

import "strings"

// ComposePrompt frames recalled memory and the new user line the way the
// model sees the conversation:
//
//	<memory>
//	User: <input>
//	AI:
//
// Empty memory still yields a leading newline so the model starts cold.
func ComposePrompt(memory, input string) string {
	var b strings.Builder
	b.WriteString(memory)
	b.WriteString("\nUser: ")
	b.WriteString(input)
	b.WriteString("\nAI:")
	return b.String()
}

// MemoryRecord is the text stored for one exchange.
func MemoryRecord(input, reply string) string {
	return "User: " + input + "\nAI: " + reply
}
