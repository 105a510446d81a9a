package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/torijune/Survey-AI-sub001/internal/chunker"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	ChunkMaxLen  int
	ChunkOverlap int
}

// Load reads configuration from a .env file (if present) and the
// environment. The returned Config is handed to main and passed down
// explicitly; there is no package-level state.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional, environment variables win

	cfg := &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", "survey_ai.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		ChunkMaxLen:  getEnvAsInt("CHUNK_MAX_LEN", chunker.DefaultMaxLen),
		ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.ChunkOverlap >= cfg.ChunkMaxLen {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_MAX_LEN (%d)", cfg.ChunkOverlap, cfg.ChunkMaxLen)
	}
	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
