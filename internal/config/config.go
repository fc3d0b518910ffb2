package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	LLM       LLMConfig
	Breaker   BreakerConfig
	Screening ScreeningConfig
	Storage   StorageConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	Enabled    bool
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

// LLMConfig configures the scoring oracle. Provider is "openai" for any
// OpenAI-compatible chat-completion endpoint or "gemini".
type LLMConfig struct {
	Provider          string
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RequestsPerMinute int
	Burst             int
}

type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// ScreeningConfig holds the two deployment-wide policy switches.
type ScreeningConfig struct {
	Thresholds         string // "standard" (70/55) or "strict" (75/50)
	ClassifierFallback string // "accept" or "reject"
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

type WorkerConfig struct {
	Concurrency        int
	ExtractConcurrency int
	PollInterval       time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resume_screener"),
		},
		Qdrant: QdrantConfig{
			Enabled:    getEnvAsBool("INDEX_ENABLED", false),
			URL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "resume_screener_resumes"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		LLM: LLMConfig{
			Provider:          strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			BaseURL:           getEnv("LLM_BASE_URL", "http://localhost:1234/v1"),
			APIKey:            getEnv("LLM_API_KEY", "lm-studio"),
			Model:             getEnv("LLM_MODEL", "qwen2.5-coder-7b-instruct"),
			Temperature:       getEnvAsFloat32("LLM_TEMPERATURE", 0.3),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 0),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", "90s"),
			RetryMaxAttempts:  getEnvAsInt("LLM_RETRY_MAX_ATTEMPTS", 2),
			RetryInitialDelay: getEnvAsDuration("LLM_RETRY_DELAY", "2s"),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 30),
			Burst:             getEnvAsInt("LLM_BURST", 1),
		},
		Breaker: BreakerConfig{
			Enabled:          getEnvAsBool("BREAKER_ENABLED", true),
			MaxRequests:      uint32(getEnvAsInt("BREAKER_MAX_REQUESTS", 1)),
			Interval:         getEnvAsDuration("BREAKER_INTERVAL", "60s"),
			Timeout:          getEnvAsDuration("BREAKER_TIMEOUT", "30s"),
			MinRequests:      uint32(getEnvAsInt("BREAKER_MIN_REQUESTS", 5)),
			FailureThreshold: getEnvAsFloat64("BREAKER_FAILURE_THRESHOLD", 0.6),
		},
		Screening: ScreeningConfig{
			Thresholds:         strings.ToLower(getEnv("SCORE_THRESHOLDS", "standard")),
			ClassifierFallback: strings.ToLower(getEnv("CLASSIFIER_FALLBACK", "accept")),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Worker: WorkerConfig{
			Concurrency:        getEnvAsInt("WORKER_CONCURRENCY", 2),
			ExtractConcurrency: getEnvAsInt("EXTRACT_CONCURRENCY", 4),
			PollInterval:       getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
	}
}

// Validate rejects combinations the services cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("LLM_BASE_URL is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.Screening.Thresholds != "standard" && c.Screening.Thresholds != "strict" {
		return fmt.Errorf("SCORE_THRESHOLDS must be standard or strict, got %q", c.Screening.Thresholds)
	}

	if c.Screening.ClassifierFallback != "accept" && c.Screening.ClassifierFallback != "reject" {
		return fmt.Errorf("CLASSIFIER_FALLBACK must be accept or reject, got %q", c.Screening.ClassifierFallback)
	}

	if c.Qdrant.Enabled && c.Gemini.APIKey == "" {
		return fmt.Errorf("INDEX_ENABLED requires GEMINI_API_KEY for embeddings")
	}

	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	return float32(getEnvAsFloat64(key, float64(defaultValue)))
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
