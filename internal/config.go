// Package internal provides the application configuration and wiring.
package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/pkg/config"
)

// LLM backends.
const (
	BackendNone   = "none"
	BackendOllama = "ollama"
	BackendClaude = "claude"
	BackendGemini = "gemini"
)

// configFileName is the per-user config file in the home directory.
const configFileName = ".ansuz.yaml"

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	Store     StoreConfig       `yaml:"store"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Chat      ChatConfig        `yaml:"chat"`
	Extractor ExtractorConfig   `yaml:"extractor"`
	Keys      KeysConfig        `yaml:"-"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Chat.Validate(); err != nil {
		return err
	}
	return c.Extractor.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// VaultConfig holds the path to the markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StoreConfig holds the vector database configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// EmbeddingConfig holds embedding model and chunking configuration.
type EmbeddingConfig struct {
	OllamaHost   string `yaml:"ollama_host"`
	Model        string `yaml:"model"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.OllamaHost, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ChunkOverlap, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("embedding: chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// ChatConfig holds conversation configuration.
type ChatConfig struct {
	Backend          string `yaml:"backend"`
	OllamaModel      string `yaml:"ollama_model"`
	ClaudeModel      string `yaml:"claude_model"`
	GeminiModel      string `yaml:"gemini_model"`
	ContextLimit     int    `yaml:"context_limit"`
	MaxTurns         int    `yaml:"max_turns"`
	TokenLimit       int    `yaml:"token_limit"`
	RecentTurns      int    `yaml:"recent_turns"`
	EnableCompaction bool   `yaml:"enable_compaction"`
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendOllama, BackendClaude, BackendGemini)),
		validation.Field(&c.ContextLimit, validation.Min(1)),
		validation.Field(&c.MaxTurns, validation.Min(1)),
		validation.Field(&c.TokenLimit, validation.Min(1)),
		validation.Field(&c.RecentTurns, validation.Min(1)),
	)
}

// ExtractorConfig holds metadata extraction configuration.
type ExtractorConfig struct {
	Backend             string `yaml:"backend"`
	OllamaModel         string `yaml:"ollama_model"`
	OllamaNumCtx        int    `yaml:"ollama_num_ctx"`
	OllamaMaxContentLen int    `yaml:"ollama_max_content_length"`
	APIMaxContentLen    int    `yaml:"api_max_content_length"`
}

// Validate validates the extractor configuration.
func (c *ExtractorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendNone, BackendOllama, BackendClaude, BackendGemini)),
	)
}

// KeysConfig holds API keys. Keys come from the environment only and are
// never written back to the config file.
type KeysConfig struct {
	Anthropic string
	Google    string
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Vault: VaultConfig{
			Path: filepath.Join(home, "Notes"),
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".ansuz", "ansuz.db"),
		},
		Embedding: EmbeddingConfig{
			OllamaHost:   "http://localhost:11434",
			Model:        "nomic-embed-text",
			ChunkSize:    2000,
			ChunkOverlap: 200,
		},
		Chat: ChatConfig{
			Backend:          BackendOllama,
			OllamaModel:      "llama3.2",
			ClaudeModel:      "claude-3-5-haiku-latest",
			GeminiModel:      "gemini-2.0-flash",
			ContextLimit:     5,
			MaxTurns:         10,
			TokenLimit:       4000,
			RecentTurns:      2,
			EnableCompaction: true,
		},
		Extractor: ExtractorConfig{
			Backend:             BackendOllama,
			OllamaModel:         "llama3.2",
			OllamaMaxContentLen: 12000,
			APIMaxContentLen:    64000,
		},
	}
}

// ConfigPath returns the location of the per-user config file.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	return filepath.Join(home, configFileName), nil
}

// LoadConfig loads configuration by layering, in increasing precedence:
// built-in defaults, the per-user YAML file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := NewDefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, statErr)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration to the per-user YAML file. API keys
// are excluded.
func SaveConfig(cfg *Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := config.Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// applyEnv overrides config fields from environment variables.
func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Vault.Path, "VAULT_PATH")
	setStr(&cfg.Store.Path, "ANSUZ_DB_PATH")
	setStr(&cfg.Embedding.OllamaHost, "OLLAMA_HOST")
	setStr(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setStr(&cfg.Chat.Backend, "CHAT_BACKEND")
	setStr(&cfg.Chat.OllamaModel, "CHAT_MODEL")
	setStr(&cfg.Extractor.Backend, "EXTRACTOR_BACKEND")
	setStr(&cfg.Extractor.OllamaModel, "OLLAMA_MODEL")
	setStr(&cfg.Keys.Anthropic, "ANTHROPIC_API_KEY")
	setStr(&cfg.Keys.Google, "GOOGLE_API_KEY")

	if v := os.Getenv("OLLAMA_NUM_CTX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extractor.OllamaNumCtx = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err == nil {
			cfg.App.LogLevel = level
		}
	}
}
