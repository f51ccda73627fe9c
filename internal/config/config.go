// Package config loads the control plane configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the coaching control plane.
type Config struct {
	Port      int
	Version   string
	LogLevel  string
	DataDir   string
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Auth      AuthConfig
	Inference InferenceConfig
	Knowledge KnowledgeConfig
}

// DatabaseConfig selects the store. An empty URL means the in-memory store.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type AuthConfig struct {
	APIKeys     []string
	TokenSecret string
	RequireAuth bool
}

type InferenceConfig struct {
	Provider         string // anthropic | openai
	FallbackProvider string // optional
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicPrefill bool
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	Timeout          time.Duration
	MaxRetries       int
	Temperature      float64
}

type KnowledgeConfig struct {
	// Source is a YAML document file indexed at startup when set.
	Source    string
	IndexPath string
	Budget    int
	CacheSize int
	CacheTTL  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:     envInt("COACHPLANE_PORT", 8080),
		Version:  envStr("COACHPLANE_VERSION", "0.1.0"),
		LogLevel: envStr("LOG_LEVEL", "info"),
		DataDir:  envStr("COACHPLANE_DATA_DIR", ""),
		Database: DatabaseConfig{
			URL:            envStr("DATABASE_URL", ""),
			MaxConnections: envInt("DATABASE_MAX_CONNECTIONS", 25),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "coachplane"),
		},
		Auth: AuthConfig{
			APIKeys:     envList("COACHPLANE_API_KEYS"),
			TokenSecret: envStr("COACHPLANE_TOKEN_SECRET", ""),
			RequireAuth: envBool("COACHPLANE_REQUIRE_AUTH", true),
		},
		Inference: InferenceConfig{
			Provider:         envStr("INFERENCE_PROVIDER", "anthropic"),
			FallbackProvider: envStr("INFERENCE_FALLBACK_PROVIDER", ""),
			AnthropicAPIKey:  envStr("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   envStr("ANTHROPIC_MODEL", ""),
			AnthropicPrefill: envBool("ANTHROPIC_PREFILL", false),
			OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
			OpenAIModel:      envStr("OPENAI_MODEL", ""),
			OpenAIBaseURL:    envStr("OPENAI_BASE_URL", ""),
			Timeout:          envDuration("INFERENCE_TIMEOUT", 90*time.Second),
			MaxRetries:       envInt("INFERENCE_MAX_RETRIES", 2),
			Temperature:      envFloat("INFERENCE_TEMPERATURE", 0.3),
		},
		Knowledge: KnowledgeConfig{
			Source:    envStr("KNOWLEDGE_SOURCE", ""),
			IndexPath: envStr("KNOWLEDGE_INDEX_PATH", ""),
			Budget:    envInt("KNOWLEDGE_BUDGET", 4),
			CacheSize: envInt("KNOWLEDGE_CACHE_SIZE", 256),
			CacheTTL:  envDuration("KNOWLEDGE_CACHE_TTL", 10*time.Minute),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
