package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ollama talks to a local Ollama daemon. It is the only backend with a
// streaming variant.
type Ollama struct {
	host   string
	model  string
	client *http.Client
}

// NewOllama returns a client for the daemon at host. No credential is
// required for a local daemon.
func NewOllama(host, model string) *Ollama {
	return &Ollama{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// wireMessages projects history into the Ollama wire shape: flat
// role/content pairs with an optional leading system message.
func (o *Ollama) wireMessages(messages []Message, systemPrompt string) []Message {
	out := make([]Message, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, Message{Role: "system", Content: systemPrompt})
	}
	return append(out, messages...)
}

// Chat implements Client.
func (o *Ollama) Chat(ctx context.Context, messages []Message, systemPrompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: o.wireMessages(messages, systemPrompt),
	})
	if err != nil {
		return "", callFailed("ollama", err)
	}

	resp, err := o.post(ctx, body)
	if err != nil {
		return "", callFailed("ollama", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", callFailed("ollama", err)
	}
	return out.Message.Content, nil
}

// ChatStream implements Streamer. The daemon answers with newline-delimited
// JSON fragments; each fragment's content delta is handed to onDelta. The
// consumer controls pacing, and stopping early (ErrStopStream) closes the
// response body without an error.
func (o *Ollama) ChatStream(ctx context.Context, messages []Message, systemPrompt string, onDelta func(string) error) error {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: o.wireMessages(messages, systemPrompt),
		Stream:   true,
	})
	if err != nil {
		return callFailed("ollama", err)
	}

	resp, err := o.post(ctx, body)
	if err != nil {
		return callFailed("ollama", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frag ollamaChatResponse
		if err := json.Unmarshal(line, &frag); err != nil {
			return callFailed("ollama", err)
		}
		if frag.Message.Content != "" {
			if err := onDelta(frag.Message.Content); err != nil {
				if errors.Is(err, ErrStopStream) {
					return nil
				}
				return err
			}
		}
		if frag.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return callFailed("ollama", err)
	}
	return nil
}

func (o *Ollama) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", o.host, resp.Status)
	}
	return resp, nil
}

var (
	_ Client   = (*Ollama)(nil)
	_ Streamer = (*Ollama)(nil)
)
