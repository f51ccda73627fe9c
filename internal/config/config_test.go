package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty", cfg.Database.URL)
	}
	if cfg.Inference.Timeout != 90*time.Second {
		t.Errorf("Inference.Timeout = %v, want 90s", cfg.Inference.Timeout)
	}
	if cfg.Inference.MaxRetries != 2 {
		t.Errorf("Inference.MaxRetries = %d, want 2", cfg.Inference.MaxRetries)
	}
	if !cfg.Auth.RequireAuth {
		t.Error("Auth.RequireAuth = false, want true")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("COACHPLANE_PORT", "9090")
	t.Setenv("COACHPLANE_API_KEYS", "a, ,b")
	t.Setenv("INFERENCE_TIMEOUT", "30s")
	t.Setenv("INFERENCE_TEMPERATURE", "0.5")
	t.Setenv("KNOWLEDGE_CACHE_TTL", "not-a-duration")
	t.Setenv("INFERENCE_MAX_RETRIES", "x")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[1] != "b" {
		t.Errorf("Auth.APIKeys = %v, want [a b]", cfg.Auth.APIKeys)
	}
	if cfg.Inference.Timeout != 30*time.Second {
		t.Errorf("Inference.Timeout = %v, want 30s", cfg.Inference.Timeout)
	}
	if cfg.Inference.Temperature != 0.5 {
		t.Errorf("Inference.Temperature = %v, want 0.5", cfg.Inference.Temperature)
	}
	if cfg.Knowledge.CacheTTL != 10*time.Minute {
		t.Errorf("Knowledge.CacheTTL = %v, want fallback 10m", cfg.Knowledge.CacheTTL)
	}
	if cfg.Inference.MaxRetries != 2 {
		t.Errorf("Inference.MaxRetries = %d, want fallback 2", cfg.Inference.MaxRetries)
	}
}
