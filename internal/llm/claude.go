package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClaude fails fast when the API key is absent — a missing credential is
// a configuration error, not something to discover mid-conversation.
func NewClaude(apiKey, model string) (*Claude, error) {
	if apiKey == "" {
		return nil, errors.New("llm: claude: ANTHROPIC_API_KEY is required")
	}
	return &Claude{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicEndpoint,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

type claudeRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	System    string    `json:"system,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Chat implements Client. History maps straight onto the wire: the API
// shares the flat role/content shape.
func (c *Claude) Chat(ctx context.Context, messages []Message, systemPrompt string) (string, error) {
	body, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: 4096,
		Messages:  messages,
		System:    systemPrompt,
	})
	if err != nil {
		return "", callFailed("claude", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", callFailed("claude", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", callFailed("claude", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", callFailed("claude", fmt.Errorf("api returned %s", resp.Status))
	}

	var out claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", callFailed("claude", err)
	}

	var text bytes.Buffer
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

var _ Client = (*Claude)(nil)
