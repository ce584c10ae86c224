package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers    []string
	AuditTopic      string
	AuditPublishing bool

	// LLM
	LLMAPIKey        string
	LLMBaseURL       string
	LLMModelName     string
	EmbeddingModel   string
	ReasoningTimeout time.Duration

	// Knowledge base
	KnowledgeIndexPath string
	RelevanceThreshold float64
	RetrievalTopK      int
	EmbeddingCacheTTL  time.Duration
	TerminologyPath    string

	// Statistics source
	StatisticsFilePath string

	// Prompt composition
	ContextBudgetChars int

	// Safety
	SafetyRulesPath   string
	EnableSafetyCheck bool

	// Aggregation
	SectionTimeout time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "glucomind"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "glucomind123"),
		PostgresDB:       getEnv("POSTGRES_DB", "medical_knowledge_base"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		AuditTopic:      getEnv("AUDIT_TOPIC", "assistant.audit"),
		AuditPublishing: getBoolEnv("AUDIT_PUBLISHING", false),

		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		LLMModelName:     getEnv("LLM_MODEL_NAME", "qwen-plus"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-v2"),
		ReasoningTimeout: getDuration("REASONING_TIMEOUT", 60*time.Second),

		KnowledgeIndexPath: getEnv("KNOWLEDGE_INDEX_PATH", "./knowledge_base/medical/index.json"),
		RelevanceThreshold: getFloatEnv("RELEVANCE_THRESHOLD", 0.35),
		RetrievalTopK:      getIntEnv("RETRIEVAL_TOP_K", 5),
		EmbeddingCacheTTL:  getDuration("EMBEDDING_CACHE_TTL", 10*time.Minute),
		TerminologyPath:    getEnv("TERMINOLOGY_PATH", ""),

		StatisticsFilePath: getEnv("STATISTICS_FILE_PATH", "./data/diabetes_statistics.xlsx"),

		ContextBudgetChars: getIntEnv("CONTEXT_BUDGET_CHARS", 6000),

		SafetyRulesPath:   getEnv("SAFETY_RULES_PATH", ""),
		EnableSafetyCheck: getBoolEnv("ENABLE_SAFETY_CHECK", true),

		SectionTimeout: getDuration("SECTION_TIMEOUT", 5*time.Second),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ContextBudgetChars <= 0 {
		return fmt.Errorf("CONTEXT_BUDGET_CHARS must be positive, got %d", c.ContextBudgetChars)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RetrievalTopK)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("RELEVANCE_THRESHOLD must be in [0,1], got %f", c.RelevanceThreshold)
	}
	if c.ReasoningTimeout <= 0 {
		return fmt.Errorf("REASONING_TIMEOUT must be positive")
	}
	if c.SectionTimeout <= 0 {
		return fmt.Errorf("SECTION_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
