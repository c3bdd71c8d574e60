package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	Port       string
	APIBaseURL string
	APIKey     string

	// AdminToken gates the order-creation helper. Generated per boot when
	// ADMIN_TOKEN is unset.
	AdminToken          string
	AdminTokenGenerated bool

	MaxConcurrentDownloads int64
	MaxImagesPerOrder      int
	DownloadRetryDelay     time.Duration
	UpstreamTimeout        time.Duration

	JobTTL       time.Duration
	CacheEnabled bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		AppEnv:                 appEnv,
		Port:                   getEnv("PORT", "8080"),
		APIBaseURL:             getEnv("AUTOENHANCE_API_BASE", "https://api.autoenhance.ai/v3"),
		APIKey:                 os.Getenv("AUTOENHANCE_API_KEY"),
		AdminToken:             os.Getenv("ADMIN_TOKEN"),
		MaxConcurrentDownloads: int64(getEnvInt("MAX_CONCURRENT_DOWNLOADS", 5)),
		MaxImagesPerOrder:      getEnvInt("MAX_IMAGES_PER_ORDER", 100),
		DownloadRetryDelay:     time.Second * time.Duration(getEnvInt("DOWNLOAD_RETRY_DELAY_SECONDS", 1)),
		UpstreamTimeout:        time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 60)),
		JobTTL:                 time.Second * time.Duration(getEnvInt("JOB_TTL_SECONDS", 3600)),
		CacheEnabled:           getEnvBool("ZIP_CACHE_ENABLED", appEnv != "test"),
		HTTPReadTimeout:        time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:       time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:        time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AUTOENHANCE_API_KEY is required")
	}

	if cfg.MaxConcurrentDownloads < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be at least 1")
	}

	if cfg.AdminToken == "" {
		cfg.AdminToken = randomToken()
		cfg.AdminTokenGenerated = true
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("infra: read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
