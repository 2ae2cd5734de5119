package config

import (
	"time"

	"github.com/phrazzld/coursegen/internal/generation"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm" validate:"required"`
	Content    ContentConfig    `mapstructure:"content" validate:"required"`
	Publishing PublishingConfig `mapstructure:"publishing"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// DemoMode keeps all content in memory and skips the database entirely.
	DemoMode bool `mapstructure:"demo_mode"`

	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is required unless Server.DemoMode is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains provider credentials and call policy. A provider whose
// API key is empty is simply not offered.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model" validate:"required"`

	// Gemini exposes no rate-limit headers; these estimates are reported instead.
	GeminiRequestsPerMinute int `mapstructure:"gemini_requests_per_minute" validate:"gte=0"`
	GeminiTokensPerMinute   int `mapstructure:"gemini_tokens_per_minute" validate:"gte=0"`

	ClaudeAPIKey  string `mapstructure:"claude_api_key"`
	ClaudeModel   string `mapstructure:"claude_model" validate:"required"`
	ClaudeBaseURL string `mapstructure:"claude_base_url" validate:"required,url"`

	RequestTimeoutSeconds     int `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	HealthCheckTimeoutSeconds int `mapstructure:"health_check_timeout_seconds" validate:"gt=0"`

	MaxRetries          int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	InitialRetryDelayMs int     `mapstructure:"initial_retry_delay_ms" validate:"gt=0"`
	MaxRetryDelayMs     int     `mapstructure:"max_retry_delay_ms" validate:"gtefield=InitialRetryDelayMs"`
	BackoffMultiplier   float64 `mapstructure:"backoff_multiplier" validate:"gt=1"`
}

// RetryPolicy builds the default provider retry policy.
func (c LLMConfig) RetryPolicy() generation.RetryPolicy {
	p := generation.DefaultRetryPolicy()
	p.MaxRetries = c.MaxRetries
	p.InitialDelay = time.Duration(c.InitialRetryDelayMs) * time.Millisecond
	p.MaxDelay = time.Duration(c.MaxRetryDelayMs) * time.Millisecond
	p.BackoffMultiplier = c.BackoffMultiplier
	return p
}

// RequestTimeout is the per-call HTTP timeout.
func (c LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// HealthCheckTimeout bounds a single provider probe.
func (c LLMConfig) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutSeconds) * time.Second
}

// ContentConfig holds content lifecycle settings.
type ContentConfig struct {
	MaxVersions int `mapstructure:"max_versions" validate:"gt=0,lte=100"`

	// PromptCatalogPath points to a YAML prompt catalog. Empty means the
	// built-in catalog.
	PromptCatalogPath string `mapstructure:"prompt_catalog_path"`
}

// PublishingConfig configures export of published content to Notion.
// Export is disabled when NotionToken is empty.
type PublishingConfig struct {
	NotionToken        string `mapstructure:"notion_token"`
	NotionParentPageID string `mapstructure:"notion_parent_page_id" validate:"required_with=NotionToken"`
	NotionBaseURL      string `mapstructure:"notion_base_url" validate:"required,url"`
	// NotionMaxRetries bounds retries of rate-limited and 5xx Notion calls.
	NotionMaxRetries int `mapstructure:"notion_max_retries" validate:"gte=0,lte=10"`
}

// NotionEnabled reports whether export is configured.
func (c PublishingConfig) NotionEnabled() bool {
	return c.NotionToken != ""
}
