package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ClientHTTP = "http"
	ClientSDK  = "sdk"
)

type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin string
	OpenAI          OpenAIConfig
	OTel            OTelConfig
}

// OpenAIConfig describes the external completion endpoint. MaxTokens and
// Temperature are fixed per process; requests never override them.
type OpenAIConfig struct {
	APIKey         string
	CompletionsURL string // used by the http client
	BaseURL        string // used by the sdk client
	Model          string
	MaxTokens      int
	Temperature    float64
	Timeout        time.Duration // zero means no timeout
	Client         string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load reads configuration from the environment. Outside production a .env
// file in the working directory is loaded first when present.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") != "production" {
		_ = godotenv.Load()
	}

	cfg := Config{
		Env:             getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			CompletionsURL: getEnv("OPENAI_COMPLETIONS_URL", "https://api.openai.com/v1/completions"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-3.5-turbo-instruct"),
			MaxTokens:      getEnvInt("OPENAI_MAX_TOKENS", 150),
			Temperature:    getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			Timeout:        getEnvDuration("OPENAI_TIMEOUT", 0),
			Client:         getEnv("OPENAI_CLIENT", ClientHTTP),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "chatbot"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.OpenAI.Client != ClientHTTP && cfg.OpenAI.Client != ClientSDK {
		return Config{}, fmt.Errorf("OPENAI_CLIENT must be %q or %q, got %q", ClientHTTP, ClientSDK, cfg.OpenAI.Client)
	}
	// Only the http client can target engine URLs that take no model.
	if cfg.OpenAI.Client == ClientSDK && cfg.OpenAI.Model == "" {
		return Config{}, fmt.Errorf("OPENAI_MODEL is required when OPENAI_CLIENT=%q", ClientSDK)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
