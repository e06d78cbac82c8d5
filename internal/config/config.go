package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pretzelai/openlingo/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required for live translation)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.7)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Fetch Configuration:
// - FETCH_PROXY_URL: Base URL of the rendering proxy fallback (optional)
// - FETCH_PROXY_API_KEY: API key for the rendering proxy (optional)
//
// Translate Configuration:
// - TARGET_LANGUAGE: Default target language name (default: Spanish)
// - CEFR_LEVEL: Default proficiency level (default: B1)
// - BRIDGE_LANGUAGE: Pivot language of the interlinear gloss (default: English)
//
// Jobs Configuration:
// - DB_PATH: SQLite database path (default: ./data/openlingo.db)
// - JOB_WORKERS: Background worker count (default: 2)
// - WAVE_SIZE: Concurrent translation calls per wave (default: 15)
// - CLEANUP_CRON: Retention sweep schedule (default: 0 3 * * *)
// - RETENTION_DAYS: Days to keep terminal jobs (default: 30)
//
// Server Configuration:
// - SERVER_ADDR: HTTP listen address (default: :8080)
// - LOG_LEVEL: debug|info|warn|error (default: info)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Fetch     FetchConfig     `json:"fetch"`
	Translate TranslateConfig `json:"translate"`
	Jobs      JobsConfig      `json:"jobs"`
	Server    ServerConfig    `json:"server"`
}

// LLMConfig holds the configuration for the LLM client
// Supports any OpenAI-compatible provider
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// FetchConfig holds the rendering proxy fallback configuration
type FetchConfig struct {
	ProxyURL    string `json:"proxy_url"`
	ProxyAPIKey string `json:"proxy_api_key"`
}

// TranslateConfig holds default translation parameters for new jobs
type TranslateConfig struct {
	TargetLanguage string `json:"target_language"`
	CEFRLevel      string `json:"cefr_level"`
	BridgeLanguage string `json:"bridge_language"`
}

// JobsConfig holds background processing configuration
type JobsConfig struct {
	DBPath        string `json:"db_path"`
	Workers       int    `json:"workers"`
	WaveSize      int    `json:"wave_size"`
	CleanupCron   string `json:"cleanup_cron"`
	RetentionDays int    `json:"retention_days"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Addr     string `json:"addr"`
	LogLevel string `json:"log_level"`
}

// cefrLevels is the set of valid proficiency tiers.
var cefrLevels = map[string]bool{
	"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true,
}

// ValidCEFRLevel reports whether level names a known proficiency tier.
func ValidCEFRLevel(level string) bool {
	return cefrLevels[strings.ToUpper(strings.TrimSpace(level))]
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Fetch: FetchConfig{
			ProxyURL:    getEnvString("FETCH_PROXY_URL", ""),
			ProxyAPIKey: getEnvString("FETCH_PROXY_API_KEY", ""),
		},
		Translate: TranslateConfig{
			TargetLanguage: getEnvString("TARGET_LANGUAGE", "Spanish"),
			CEFRLevel:      strings.ToUpper(getEnvString("CEFR_LEVEL", "B1")),
			BridgeLanguage: getEnvString("BRIDGE_LANGUAGE", "English"),
		},
		Jobs: JobsConfig{
			DBPath:        getEnvString("DB_PATH", "./data/openlingo.db"),
			Workers:       getEnvInt("JOB_WORKERS", 2),
			WaveSize:      getEnvInt("WAVE_SIZE", 15),
			CleanupCron:   getEnvString("CLEANUP_CRON", "0 3 * * *"),
			RetentionDays: getEnvInt("RETENTION_DAYS", 30),
		},
		Server: ServerConfig{
			Addr:     getEnvString("SERVER_ADDR", ":8080"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if !ValidCEFRLevel(c.Translate.CEFRLevel) {
		return fmt.Errorf("invalid CEFR_LEVEL %q", c.Translate.CEFRLevel)
	}
	if strings.TrimSpace(c.Translate.TargetLanguage) == "" {
		return fmt.Errorf("TARGET_LANGUAGE must not be empty")
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("JOB_WORKERS must be at least 1")
	}
	if c.Jobs.WaveSize < 1 {
		return fmt.Errorf("WAVE_SIZE must be at least 1")
	}
	if c.LLM.APIKey == "" {
		log.Warn("LLM_API_KEY not set: translations will degrade to source text")
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Warn("Invalid integer for %s: %q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		log.Warn("Invalid float for %s: %q, using default %f", key, value, fallback)
		return fallback
	}
	return parsed
}
