package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type LLMConfig struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

type SerpAPIConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	RateRPS  float64
	CacheTTL time.Duration
}

type OrchestratorConfig struct {
	MaxRounds int
	Timeout   time.Duration
}

type ObservabilityConfig struct {
	ServiceName  string
	MetricsAddr  string
	PprofAddr    string
	OTLPEndpoint string
	LogLevel     string
}

type Config struct {
	ServerPort          string
	CORSAllowedOrigins  []string
	BookingAlternatives bool
	LLM                 LLMConfig
	SerpAPI             SerpAPIConfig
	Orchestrator        OrchestratorConfig
	Observability       ObservabilityConfig
}

// Load builds the configuration from the environment once at startup.
func Load() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnvOrDefault(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	integer := func(key string, def int) int {
		n, err := strconv.Atoi(getEnvOrDefault(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}
	float := func(key string, def float64) float64 {
		f, err := strconv.ParseFloat(getEnvOrDefault(key, strconv.FormatFloat(def, 'f', -1, 64)), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return f
	}
	boolean := func(key string, def bool) bool {
		b, err := strconv.ParseBool(getEnvOrDefault(key, strconv.FormatBool(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return b
	}

	cfg := &Config{
		ServerPort:          getEnvOrDefault("SERVER_PORT", "8001"),
		CORSAllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://pakigentravel.vercel.app")),
		BookingAlternatives: boolean("HOTELS_BOOKING_ALTERNATIVES", false),
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "openai")),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		SerpAPI: SerpAPIConfig{
			APIKey:   os.Getenv("SERPAPI_API_KEY"),
			BaseURL:  getEnvOrDefault("SERPAPI_BASE_URL", "https://serpapi.com"),
			Timeout:  duration("SERPAPI_TIMEOUT", "30s"),
			RateRPS:  float("SERPAPI_RATE_LIMIT", 5),
			CacheTTL: duration("SERPAPI_CACHE_TTL", "10m"),
		},
		Orchestrator: OrchestratorConfig{
			MaxRounds: integer("ORCHESTRATOR_MAX_ROUNDS", 12),
			Timeout:   duration("ORCHESTRATOR_TIMEOUT", "3m"),
		},
		Observability: ObservabilityConfig{
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "go-travel-planner"),
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			PprofAddr:    os.Getenv("PPROF_ADDR"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}
	if _, set := os.LookupEnv("PPROF_ADDR"); !set {
		cfg.Observability.PprofAddr = ":6060"
	}

	if cfg.SerpAPI.APIKey == "" {
		errs = append(errs, errors.New("SERPAPI_API_KEY environment variable is required"))
	}
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY environment variable is required"))
		}
	case "gemini":
		if cfg.LLM.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY environment variable is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", cfg.LLM.Provider))
	}
	if cfg.Orchestrator.MaxRounds <= 0 {
		errs = append(errs, errors.New("ORCHESTRATOR_MAX_ROUNDS must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(part string, _ int) string { return strings.TrimSpace(part) })
	return lo.Uniq(lo.Compact(parts))
}
