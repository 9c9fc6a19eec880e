package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini        string
	GoogleGeminiReserve string // used only by the quota retry
	EmbedProductTopic   string
}

type AIConfig struct {
	LLMProvider       string // "gemini" or "ollama"
	SmartModel        string
	FastModel         string
	VisionModel       string
	OllamaBaseURL     string
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
}

type PipelineConfig struct {
	HistoryLimit int
	MaxToolCalls int
	TurnTimeout  time.Duration
	LockTTL      time.Duration
	UseRedisLock bool
	HelpDocPath  string
	LLMLogPath   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GoogleGeminiReserve: getEnv("GOOGLE_GEMINI_RESERVE_API_KEY", ""),
			EmbedProductTopic:   getEnv("EMBED_PRODUCT_TOPIC_NAME", "EMBED_PRODUCT"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			SmartModel:        getEnv("LLM_SMART_MODEL", "gemini-2.5-flash"),
			FastModel:         getEnv("LLM_FAST_MODEL", "gemini-2.0-flash"),
			VisionModel:       getEnv("LLM_VISION_MODEL", "gemini-2.0-flash"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		},
		Pipeline: PipelineConfig{
			HistoryLimit: getEnvAsInt("PIPELINE_HISTORY_LIMIT", 10),
			MaxToolCalls: getEnvAsInt("PIPELINE_MAX_TOOL_CALLS", 4),
			TurnTimeout:  getEnvAsDuration("PIPELINE_TURN_TIMEOUT", 2*time.Minute),
			LockTTL:      getEnvAsDuration("PIPELINE_LOCK_TTL", 3*time.Minute),
			UseRedisLock: getEnvAsBool("PIPELINE_REDIS_LOCK", false),
			HelpDocPath:  getEnv("APP_HELP_DOC_PATH", "docs/app_guide.md"),
			LLMLogPath:   getEnv("LLM_LOG_FILE_PATH", "logs/llm_pipeline.log"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
