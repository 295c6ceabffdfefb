// Package history bounds the conversation context sent to an LLM, either by
// a fixed message window or by token-aware compaction into a running
// summary.
package history

import "github.com/starford/ansuz/internal/llm"

// History is the capability the chat orchestrator owns. Implementations are
// not safe for concurrent use; each chat session owns exactly one.
type History interface {
	// Add appends a turn message, trimming or compacting as configured.
	Add(role, content string)
	// Messages returns a copy of the retained verbatim messages.
	Messages() []llm.Message
	// Summary returns the compacted prose summary of older turns, or ""
	// for implementations that never summarize.
	Summary() string
	// Clear drops all retained state.
	Clear()
}

// estimateTokens is the cheap monotonic approximation used to decide when
// to compact: roughly four characters per token.
func estimateTokens(s string) int {
	return len(s) / 4
}
