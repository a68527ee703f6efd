// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// OpenRouter upstream
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"Reading Grader"`
	GradingModel      string `env:"GRADING_MODEL" envDefault:"google/gemini-2.5-flash-lite"`
	GradingMaxTokens  int    `env:"GRADING_MAX_TOKENS" envDefault:"8000"`
	// GradingTemperature is kept low so repeated runs over the same answers
	// converge on the same verdicts.
	GradingTemperature float64       `env:"GRADING_TEMPERATURE" envDefault:"0.1"`
	AIRequestTimeout   time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`

	// Tutor chat runs hotter and longer than grading.
	ChatTemperature float64 `env:"CHAT_TEMPERATURE" envDefault:"0.7"`
	ChatMaxTokens   int     `env:"CHAT_MAX_TOKENS" envDefault:"15000"`

	// AI backoff configuration
	AIBackoffMaxElapsedTime  time.Duration `env:"AI_BACKOFF_MAX_ELAPSED_TIME" envDefault:"120s"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"2s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"20s"`
	AIBackoffMultiplier      float64       `env:"AI_BACKOFF_MULTIPLIER" envDefault:"1.5"`

	// Submission store
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SubmissionTTL time.Duration `env:"SUBMISSION_TTL" envDefault:"24h"`

	// Exam content
	ContentDir string `env:"CONTENT_DIR" envDefault:"./content"`
	// KeywordsFile optionally replaces the built-in consistency keyword lists.
	KeywordsFile string `env:"KEYWORDS_FILE"`

	// HTTP server
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// GradingTimeout bounds one background grading run end to end.
	GradingTimeout time.Duration `env:"GRADING_TIMEOUT" envDefault:"3m"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// UseRedis reports whether a Redis submission store is configured; without an
// address the service falls back to the in-memory store.
func (c Config) UseRedis() bool { return c.RedisAddr != "" }

// GetAIBackoffConfig returns backoff configuration appropriate for the current
// environment. Test mode uses short intervals so retry paths run fast.
func (c Config) GetAIBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 5 * time.Second, 100 * time.Millisecond, 1 * time.Second, 2.0
	}
	return c.AIBackoffMaxElapsedTime, c.AIBackoffInitialInterval, c.AIBackoffMaxInterval, c.AIBackoffMultiplier
}
