package history

import "github.com/starford/ansuz/internal/llm"

// Window retains at most maxTurns turns (two messages per turn), dropping
// the oldest first. It performs no I/O and never fails.
type Window struct {
	maxTurns int
	messages []llm.Message
}

// NewWindow returns a bounded-window history.
func NewWindow(maxTurns int) *Window {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Window{maxTurns: maxTurns}
}

// Add implements History.
func (w *Window) Add(role, content string) {
	w.messages = append(w.messages, llm.Message{Role: role, Content: content})
	if max := w.maxTurns * 2; len(w.messages) > max {
		w.messages = w.messages[len(w.messages)-max:]
	}
}

// Messages implements History.
func (w *Window) Messages() []llm.Message {
	out := make([]llm.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// Summary implements History; a window never summarizes.
func (w *Window) Summary() string { return "" }

// Clear implements History.
func (w *Window) Clear() { w.messages = nil }

var _ History = (*Window)(nil)
