package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	RedisURL       string
	StoragePath    string
	StorageBaseURL string

	QwenAPIKey    string
	QwenBaseURL   string
	QwenModel     string
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	RemoveBGKey   string
	RemoveBGURL   string

	GenerationTimeout       time.Duration
	MattingTimeout          time.Duration
	RemovalQualityThreshold float64
	RatingWorkers           int
	RatingQueueSize         int
	RatingStaleAfter        time.Duration
	RatingReapSchedule      string
	ArtifactCacheTTL        time.Duration

	CostQwenUSD     float64
	CostGeminiUSD   float64
	CostRemoveBGUSD float64

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
	MaxUploadBytes   int64
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           port,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),

		QwenAPIKey:    strings.TrimSpace(os.Getenv("QWEN_API_KEY")),
		QwenBaseURL:   getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		QwenModel:     getEnv("QWEN_MODEL", "qwen-image-plus"),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		RemoveBGKey:   strings.TrimSpace(os.Getenv("REMOVE_BG_API_KEY")),
		RemoveBGURL:   getEnv("REMOVE_BG_BASE_URL", "https://api.remove.bg/v1.0"),

		GenerationTimeout:       time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 60)),
		MattingTimeout:          time.Second * time.Duration(getEnvInt("MATTING_TIMEOUT_SECONDS", 30)),
		RemovalQualityThreshold: getEnvFloat("REMOVAL_QUALITY_THRESHOLD", 0.7),
		RatingWorkers:           getEnvInt("RATING_WORKERS", 2),
		RatingQueueSize:         getEnvInt("RATING_QUEUE_SIZE", 64),
		RatingStaleAfter:        time.Minute * time.Duration(getEnvInt("RATING_STALE_MINUTES", 15)),
		RatingReapSchedule:      getEnv("RATING_REAP_SCHEDULE", "@every 5m"),
		ArtifactCacheTTL:        time.Minute * time.Duration(getEnvInt("ARTIFACT_CACHE_TTL_MINUTES", 60)),

		CostQwenUSD:     getEnvFloat("COST_QWEN_USD", 0.005),
		CostGeminiUSD:   getEnvFloat("COST_GEMINI_USD", 0.04),
		CostRemoveBGUSD: getEnvFloat("COST_REMOVE_BG_USD", 0.20),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RemovalQualityThreshold <= 0 || cfg.RemovalQualityThreshold > 1 {
		return nil, fmt.Errorf("REMOVAL_QUALITY_THRESHOLD must be in (0,1], got %v", cfg.RemovalQualityThreshold)
	}
	if cfg.RatingWorkers < 1 {
		cfg.RatingWorkers = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
