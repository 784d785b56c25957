// Package config loads SmartClip settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/Liu-design-beep/smartclip/common/environment"
	"github.com/Liu-design-beep/smartclip/common/redact"
)

// Agent providers.
const (
	ProviderDashScope = "dashscope"
	ProviderOpenAI    = "openai"
)

// Document backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Agent     AgentConfig
	HTTPAddr  string
	Documents DocumentsConfig
	// SessionTTL is how long an idle chat session is kept.
	SessionTTL time.Duration
	// ChatRateLimit is the number of chat messages a session may send per
	// minute. Zero disables the limit.
	ChatRateLimit int
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
	// MessagesFile optionally overrides reply texts.
	MessagesFile string
}

// AgentConfig selects and configures the remote intent agent.
type AgentConfig struct {
	Provider string
	APIKey   string
	AppID    string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Configured reports whether credentials are present for the provider.
func (a AgentConfig) Configured() bool {
	if a.APIKey == "" {
		return false
	}
	return a.Provider != ProviderDashScope || a.AppID != ""
}

// DocumentsConfig selects the document store.
type DocumentsConfig struct {
	Backend      string
	Dir          string
	DatabasePath string
}

// Load reads a .env file when one exists, then the process environment.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file loaded", "err", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	apiKey, _ := environment.Credential("DASHSCOPE_API_KEY", "YOUR_DASHSCOPE_API_KEY", "YOUR_API_KEY")
	appID, _ := environment.Credential("APP_ID", "YOUR_APP_ID")

	cfg := &Config{
		Agent: AgentConfig{
			Provider: environment.StringOr("AGENT_PROVIDER", ProviderDashScope),
			APIKey:   apiKey,
			AppID:    appID,
			Endpoint: environment.StringOr("AGENT_ENDPOINT", ""),
			Model:    environment.StringOr("AGENT_MODEL", "qwen-plus"),
			Timeout:  environment.DurationOr("AGENT_TIMEOUT", 30*time.Second),
		},
		HTTPAddr: environment.StringOr("HTTP_ADDR", ":"+environment.StringOr("PORT", "8000")),
		Documents: DocumentsConfig{
			Backend:      environment.StringOr("DOCUMENT_BACKEND", BackendFile),
			Dir:          environment.StringOr("DOCUMENTS_DIR", "documents"),
			DatabasePath: environment.StringOr("DATABASE_PATH", "./smartclip.db"),
		},
		SessionTTL:    environment.DurationOr("SESSION_TTL", 60*time.Minute),
		ChatRateLimit: environment.IntOr("CHAT_RATE_LIMIT", 30),
		CORSOrigins:   environment.StringSliceOr("CORS_ORIGINS", []string{"*"}),
		LogLevel:      environment.StringOr("LOG_LEVEL", "info"),
		LogFormat:     environment.StringOr("LOG_FORMAT", "json"),
		MessagesFile:  environment.StringOr("MESSAGES_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations. Missing agent credentials
// are not an error; the service then runs with keyword recognition only.
func (c *Config) Validate() error {
	switch c.Agent.Provider {
	case ProviderDashScope, ProviderOpenAI:
	default:
		return fmt.Errorf("AGENT_PROVIDER must be %q or %q, got %q", ProviderDashScope, ProviderOpenAI, c.Agent.Provider)
	}
	if c.Agent.Timeout <= 0 {
		return fmt.Errorf("AGENT_TIMEOUT must be > 0")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR cannot be empty")
	}
	switch c.Documents.Backend {
	case BackendFile:
		if c.Documents.Dir == "" {
			return fmt.Errorf("DOCUMENTS_DIR cannot be empty")
		}
	case BackendSQLite:
		if c.Documents.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("DOCUMENT_BACKEND must be %q or %q, got %q", BackendFile, BackendSQLite, c.Documents.Backend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ChatRateLimit < 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be >= 0")
	}
	return nil
}

// LogValue renders the configuration for logging with credentials masked.
func (c *Config) LogValue() slog.Value {
	fields := redact.Map(map[string]any{
		"agent_provider":   c.Agent.Provider,
		"agent_api_key":    c.Agent.APIKey,
		"agent_app_id":     c.Agent.AppID,
		"agent_endpoint":   c.Agent.Endpoint,
		"http_addr":        c.HTTPAddr,
		"document_backend": c.Documents.Backend,
	})
	attrs := make([]slog.Attr, 0, len(fields)+3)
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	attrs = append(attrs,
		slog.Bool("agent_configured", c.Agent.Configured()),
		slog.Duration("session_ttl", c.SessionTTL),
		slog.Int("chat_rate_limit", c.ChatRateLimit),
	)
	return slog.GroupValue(attrs...)
}
