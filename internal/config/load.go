package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// COURSEGEN_SERVER_PORT for server.port.
const EnvPrefix = "COURSEGEN"

var defaults = map[string]any{
	"server.port":                      8080,
	"server.log_level":                 "info",
	"server.demo_mode":                 false,
	"server.shutdown_timeout_seconds":  15,
	"database.url":                     "",
	"auth.jwt_secret":                  "",
	"auth.token_lifetime_minutes":      60,
	"llm.gemini_api_key":               "",
	"llm.gemini_model":                 "gemini-2.0-flash",
	"llm.gemini_requests_per_minute":   15,
	"llm.gemini_tokens_per_minute":     1000000,
	"llm.claude_api_key":               "",
	"llm.claude_model":                 "claude-sonnet-4-20250514",
	"llm.claude_base_url":              "https://api.anthropic.com",
	"llm.request_timeout_seconds":      120,
	"llm.health_check_timeout_seconds": 10,
	"llm.max_retries":                  3,
	"llm.initial_retry_delay_ms":       1000,
	"llm.max_retry_delay_ms":           30000,
	"llm.backoff_multiplier":           2.0,
	"content.max_versions":             20,
	"content.prompt_catalog_path":      "",
	"publishing.notion_token":          "",
	"publishing.notion_parent_page_id": "",
	"publishing.notion_base_url":       "https://api.notion.com",
	"publishing.notion_max_retries":    3,
}

// Load reads configuration from an optional config.yaml (in the working
// directory or the directory named by COURSEGEN_CONFIG_DIR) and from
// environment variables, which take precedence. The result is validated.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.BindEnv("config_dir", EnvPrefix+"_CONFIG_DIR"); err == nil {
		if dir := v.GetString("config_dir"); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if !c.Server.DemoMode && c.Database.URL == "" {
		return fmt.Errorf("config validation failed: database.url is required unless server.demo_mode is set")
	}

	return nil
}
