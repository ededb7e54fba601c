package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logger"
)

// Config is loaded entirely from the process environment, per spec.md §6.
type Config struct {
	DatabaseURL string
	Workspace   string

	Provider ProviderConfig
	Model    string

	ChunkSize        int
	ChunkOverlap     int
	ExcludeLanguages []string

	MinSimilarity     float64
	MaxResults        int
	MaxChunksPerQuery int
	MaxSessionResults int

	IncludePatterns []string
	ExcludePatterns []string
	ReportOutputDir string

	Port      int
	LogConfig logger.LogConfig
}

// ProviderConfig selects and configures exactly one embedding provider
// variant (spec.md §4.1): hosted (API key), local (bare URL), or
// compatible (URL + key).
type ProviderConfig struct {
	Kind    string // "hosted", "local", "compatible"
	APIKey  string
	BaseURL string
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envCSV(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Load reads and validates the engine's configuration from the environment,
// grounded on the teacher's internal/config/config.go validation style.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       os.Getenv("SEMINDEX_DATABASE_URL"),
		Workspace:         env("SEMINDEX_WORKSPACE", "."),
		Model:             env("SEMINDEX_EMBEDDING_MODEL", "text-embedding-3-small"),
		ChunkSize:         envInt("SEMINDEX_CHUNK_SIZE", 1000),
		ChunkOverlap:      envInt("SEMINDEX_CHUNK_OVERLAP", 200),
		ExcludeLanguages:  envCSV("SEMINDEX_EXCLUDE_CODE_LANGUAGES"),
		MinSimilarity:     envFloat("SEMINDEX_MIN_SIMILARITY", 0.5),
		MaxResults:        envInt("SEMINDEX_MAX_RESULTS", 20),
		MaxChunksPerQuery: envInt("SEMINDEX_MAX_CHUNKS_PER_QUERY", 200),
		MaxSessionResults: envInt("SEMINDEX_MAX_SESSION_RESULTS", 100),
		IncludePatterns:   envCSV("SEMINDEX_INCLUDE_PATTERNS"),
		ExcludePatterns:   envCSV("SEMINDEX_EXCLUDE_PATTERNS"),
		ReportOutputDir:   os.Getenv("SEMINDEX_REPORT_OUTPUT_DIR"),
		Port:              envInt("SEMINDEX_PORT", 8080),
		LogConfig: logger.LogConfig{
			File:      env("SEMINDEX_LOG_FILE", ""),
			Level:     env("SEMINDEX_LOG_LEVEL", "info"),
			FileCount: uint64(envInt("SEMINDEX_LOG_FILE_COUNT", 7)),
			FileSize:  uint64(envInt("SEMINDEX_LOG_FILE_SIZE_MB", 100)),
			KeepDays:  uint32(envInt("SEMINDEX_LOG_KEEP_DAYS", 7)),
			Console:   os.Getenv("SEMINDEX_LOG_CONSOLE") != "false",
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("SEMINDEX_DATABASE_URL is required")
	}
	if len(cfg.IncludePatterns) == 0 {
		cfg.IncludePatterns = []string{"**/*"}
	}
	if cfg.ReportOutputDir != "" {
		cfg.ExcludePatterns = append(cfg.ExcludePatterns, strings.TrimSuffix(cfg.ReportOutputDir, "/")+"/**")
	}

	hostedKey := os.Getenv("SEMINDEX_HOSTED_API_KEY")
	localURL := os.Getenv("SEMINDEX_LOCAL_PROVIDER_URL")
	compatURL := os.Getenv("SEMINDEX_COMPATIBLE_PROVIDER_URL")
	compatKey := os.Getenv("SEMINDEX_COMPATIBLE_API_KEY")

	switch {
	case hostedKey != "":
		cfg.Provider = ProviderConfig{Kind: "hosted", APIKey: hostedKey}
	case localURL != "":
		cfg.Provider = ProviderConfig{Kind: "local", BaseURL: localURL}
	case compatURL != "" && compatKey != "":
		cfg.Provider = ProviderConfig{Kind: "compatible", BaseURL: compatURL, APIKey: compatKey}
	default:
		return nil, fmt.Errorf("no embedding provider configured: set SEMINDEX_HOSTED_API_KEY, SEMINDEX_LOCAL_PROVIDER_URL, or SEMINDEX_COMPATIBLE_PROVIDER_URL+SEMINDEX_COMPATIBLE_API_KEY")
	}

	return cfg, nil
}
