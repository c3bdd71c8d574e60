package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTOENHANCE_API_KEY", "test-key")
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIBaseURL != "https://api.autoenhance.ai/v3" {
		t.Fatalf("APIBaseURL mismatch: %q", cfg.APIBaseURL)
	}
	if cfg.MaxConcurrentDownloads != 5 {
		t.Fatalf("MaxConcurrentDownloads = %d, want 5", cfg.MaxConcurrentDownloads)
	}
	if cfg.MaxImagesPerOrder != 100 {
		t.Fatalf("MaxImagesPerOrder = %d, want 100", cfg.MaxImagesPerOrder)
	}
	if cfg.JobTTL != time.Hour {
		t.Fatalf("JobTTL = %v, want 1h", cfg.JobTTL)
	}
	if !cfg.CacheEnabled {
		t.Fatalf("CacheEnabled should default to true outside test env")
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("AUTOENHANCE_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when AUTOENHANCE_API_KEY is unset")
	}
}

func TestLoadConfigDisablesCacheInTestEnv(t *testing.T) {
	t.Setenv("AUTOENHANCE_API_KEY", "test-key")
	t.Setenv("APP_ENV", "test")
	t.Setenv("ZIP_CACHE_ENABLED", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CacheEnabled {
		t.Fatalf("CacheEnabled should be false when APP_ENV=test")
	}
}

func TestLoadConfigGeneratesAdminToken(t *testing.T) {
	t.Setenv("AUTOENHANCE_API_KEY", "test-key")
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AdminToken == "" || !cfg.AdminTokenGenerated {
		t.Fatalf("expected generated admin token, got %q (generated=%v)", cfg.AdminToken, cfg.AdminTokenGenerated)
	}
}
