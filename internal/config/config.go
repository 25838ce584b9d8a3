// Package config loads ambient runtime settings from the environment (with
// an optional .env file, the way the reference server does it) plus the
// two YAML documents the core depends on: the provider catalog and the
// classifier keyword lists.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds everything cmd/server needs to wire up the service that
// isn't itself part of the routing core.
type Config struct {
	Port         string
	AdminToken   string
	OtelEndpoint string
	LogLevel     string

	ProvidersFile string
	KeywordsFile  string

	EnableMockProvider bool
	MockMeanLatencyMs  float64
	MockP95LatencyMs   float64
	MockErrorRate      float64
	MockCostPerToken   float64

	OpenAIKey         string
	BedrockRegion     string
	EnableOpenAI      bool
	EnableBedrock     bool
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

var dotenvOnce sync.Once

func loadDotEnv() {
	dotenvOnce.Do(func() {
		f, err := os.Open(".env")
		if err != nil {
			return
		}
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			kv := strings.SplitN(line, "=", 2)
			if len(kv) != 2 {
				continue
			}
			k := strings.TrimSpace(kv[0])
			v := strings.TrimSpace(kv[1])
			if os.Getenv(k) == "" {
				_ = os.Setenv(k, v)
			}
		}
	})
}

// MaskSecrets returns a copy of c with secret fields redacted, for logging.
func (c Config) MaskSecrets() Config {
	masked := c
	if masked.OpenAIKey != "" {
		masked.OpenAIKey = "***masked***"
	}
	if masked.AdminToken != "" {
		masked.AdminToken = "***masked***"
	}
	return masked
}

func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port:          getenv("PORT", "8080"),
		AdminToken:    getenv("ADMIN_TOKEN", ""),
		OtelEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		ProvidersFile: getenv("PROVIDERS_FILE", "configs/providers.yaml"),
		KeywordsFile:  getenv("KEYWORDS_FILE", "configs/keywords.yaml"),
		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		BedrockRegion: getenv("BEDROCK_REGION", "us-east-1"),
	}

	cfg.EnableOpenAI = cfg.OpenAIKey != ""
	cfg.EnableBedrock = getenv("AWS_ACCESS_KEY_ID", "") != "" || getenv("AWS_PROFILE", "") != ""
	cfg.EnableMockProvider = boolEnv("ENABLE_MOCK_PROVIDER", !cfg.EnableOpenAI && !cfg.EnableBedrock)

	cfg.MockMeanLatencyMs = floatEnv("MOCK_MEAN_LATENCY_MS", 40)
	cfg.MockP95LatencyMs = floatEnv("MOCK_P95_LATENCY_MS", 120)
	cfg.MockErrorRate = floatEnv("MOCK_ERROR_RATE", 0.05)
	cfg.MockCostPerToken = floatEnv("MOCK_COST_PER_TOKEN_USD", 0.000002)

	return cfg
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v != "0" && strings.ToLower(v) != "false"
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}
