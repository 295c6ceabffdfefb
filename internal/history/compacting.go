package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/llm"
)

const compactionPrompt = `Summarize this conversation concisely in prose form, preserving key context like project names, file paths, decisions made, and any facts the user shared. Do not include greetings or filler. Focus on information needed for continuity.

Previous summary:
%s

Conversation to incorporate:
%s`

const compactionSystem = "You are a concise summarizer. Output only the summary, no preamble."

// Compacting keeps a verbatim tail of recent turns and folds everything
// older into a running prose summary whenever the estimated token count
// exceeds the limit.
type Compacting struct {
	tokenLimit  int
	recentTurns int
	summarizer  llm.Client // may be nil: compaction degrades to concatenation

	summary  string
	messages []llm.Message
}

// NewCompacting returns a token-aware history. summarizer may be nil, in
// which case compaction concatenates the transcript instead of summarizing.
func NewCompacting(tokenLimit, recentTurns int, summarizer llm.Client) *Compacting {
	if tokenLimit <= 0 {
		tokenLimit = 4000
	}
	if recentTurns <= 0 {
		recentTurns = 2
	}
	return &Compacting{tokenLimit: tokenLimit, recentTurns: recentTurns, summarizer: summarizer}
}

// Add implements History. Compaction runs synchronously inside Add when the
// estimate crosses the limit.
func (c *Compacting) Add(role, content string) {
	c.messages = append(c.messages, llm.Message{Role: role, Content: content})
	if c.estimate() > c.tokenLimit {
		c.compact()
	}
}

func (c *Compacting) estimate() int {
	total := estimateTokens(c.summary)
	for _, m := range c.messages {
		total += estimateTokens(m.Content)
	}
	return total
}

// compact splits off all but the most recent turns, renders them as a
// role-labeled transcript, and asks the summarizer to fold it into the
// existing summary. On summarizer failure the transcript is concatenated
// verbatim — information is degraded, never lost.
func (c *Compacting) compact() {
	keep := c.recentTurns * 2
	if len(c.messages) <= keep {
		return
	}

	old := c.messages[:len(c.messages)-keep]
	c.messages = append([]llm.Message(nil), c.messages[len(c.messages)-keep:]...)

	var lines []string
	for _, m := range old {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
	}
	transcript := strings.Join(lines, "\n")

	if c.summarizer != nil {
		existing := c.summary
		if existing == "" {
			existing = "(No previous summary)"
		}
		prompt := fmt.Sprintf(compactionPrompt, existing, transcript)
		summary, err := c.summarizer.Chat(context.Background(),
			[]llm.Message{{Role: llm.RoleUser, Content: prompt}}, compactionSystem)
		if err == nil {
			c.summary = summary
			slog.Info("compacted history",
				slog.Int("messages", len(old)),
				slog.Int("summary_chars", len(summary)))
			return
		}
		slog.Warn("compaction summarization failed, keeping raw transcript",
			slog.String("error", err.Error()))
	}

	if c.summary != "" {
		c.summary = c.summary + "\n\n" + transcript
	} else {
		c.summary = transcript
	}
}

// Messages implements History.
func (c *Compacting) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Summary implements History.
func (c *Compacting) Summary() string { return c.summary }

// Clear implements History.
func (c *Compacting) Clear() {
	c.messages = nil
	c.summary = ""
}

var _ History = (*Compacting)(nil)
