// Package config loads service configuration from the environment. A .env
// file in the working directory is loaded first when present; real
// environment variables win over file values.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/evaluation"
)

// Config is the full service configuration.
type Config struct {
	// HTTP server.
	Host string
	Port int

	// Model provider.
	OpenAIAPIKey string
	Model        string
	Temperature  float64
	MaxTokens    int64

	// Pipeline behavior. ConfidenceThreshold is the score at which a
	// prediction is accepted outright; HumanReviewThreshold is the floor
	// below which review is always required.
	ConfidenceThreshold  float64
	HumanReviewThreshold float64

	// Evaluation.
	BatchThreshold  int
	Concurrency     int
	AccuracyWeights [3]float64
	ConfusionTopN   int

	// CostRatePer1000 is the per-1000-token charge in milli-øre.
	CostRatePer1000 domain.MilliOre

	// Data files.
	DataDir string

	// Leaderboard.
	DashboardURL string
	TeamName     string

	// Infrastructure.
	RedisAddr        string
	TemporalHostPort string
	TaskQueue        string

	LogLevel    string
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults for
// everything except the API key.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:                 getEnv("EVENTTAG_HOST", "0.0.0.0"),
		Port:                 getEnvInt("EVENTTAG_PORT", 8080),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		Model:                getEnv("EVENTTAG_MODEL", "gpt-4o"),
		Temperature:          getEnvFloat("EVENTTAG_TEMPERATURE", 0.1),
		MaxTokens:            int64(getEnvInt("EVENTTAG_MAX_TOKENS", 500)),
		ConfidenceThreshold:  getEnvFloat("EVENTTAG_CONFIDENCE_THRESHOLD", 0.7),
		HumanReviewThreshold: getEnvFloat("EVENTTAG_HUMAN_REVIEW_THRESHOLD", 0.5),
		BatchThreshold:       getEnvInt("EVENTTAG_BATCH_THRESHOLD", 20),
		Concurrency:          getEnvInt("EVENTTAG_CONCURRENCY", 4),
		AccuracyWeights:      getEnvWeights("EVENTTAG_ACCURACY_WEIGHTS", evaluation.DefaultWeights),
		ConfusionTopN:        getEnvInt("EVENTTAG_CONFUSION_TOPN", evaluation.DefaultConfusionTopN),
		CostRatePer1000:      domain.MilliOre(getEnvInt("EVENTTAG_COST_RATE_MILLIORE", 150)),
		DataDir:              getEnv("EVENTTAG_DATA_DIR", "data"),
		DashboardURL:         getEnv("EVENTTAG_DASHBOARD_URL", ""),
		TeamName:             getEnv("EVENTTAG_TEAM_NAME", ""),
		RedisAddr:            getEnv("EVENTTAG_REDIS_ADDR", ""),
		TemporalHostPort:     getEnv("TEMPORAL_HOST_PORT", "localhost:7233"),
		TaskQueue:            getEnv("EVENTTAG_TASK_QUEUE", "eventtag"),
		LogLevel:             getEnv("EVENTTAG_LOG_LEVEL", "info"),
		HTTPTimeout:          getEnvDuration("EVENTTAG_HTTP_TIMEOUT", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural configuration invariants.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %f out of range [0,2]", c.Temperature)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %f out of range [0,1]", c.ConfidenceThreshold)
	}
	if c.HumanReviewThreshold < 0 || c.HumanReviewThreshold > 1 {
		return fmt.Errorf("human review threshold %f out of range [0,1]", c.HumanReviewThreshold)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency %d must be at least 1", c.Concurrency)
	}
	var sum float64
	for i, w := range c.AccuracyWeights {
		if w < 0 {
			return fmt.Errorf("accuracy weight %d is negative", i+1)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("accuracy weights sum to %f, want 1", sum)
	}
	if c.ConfusionTopN < 0 {
		return fmt.Errorf("confusion top-N %d must not be negative", c.ConfusionTopN)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvWeights parses a comma-separated weight triple, for example
// "0.5,0.3,0.2". Malformed values fall back wholesale.
func getEnvWeights(key string, fallback [3]float64) [3]float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return fallback
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fallback
		}
		out[i] = f
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
