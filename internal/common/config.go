package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "sqlite" or "postgres"
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr  string
	GRPCAddr  string
	UploadDir string
	WatchDir  string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine            string // "tesseract" (exec) or "gosseract" (cgo build)
	Tesseract         string
	Pdftoppm          string
	HEICConverter     string // "magick", "heif-convert" or "sips"
	TesseractLang     string
	TessdataDir       string
	DPI               int
	MaxPages          int
	MinTextLayerChars int
	MinWidth          int
	Timeout           time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider      string // "ollama" or "openai"
	OllamaBaseURL string
	Model         string
	OpenAIBaseURL string
	APIKey        string
	Timeout       time.Duration
}

// EmbeddingConfig holds embedding-service configuration
type EmbeddingConfig struct {
	Provider    string
	Model       string
	Dim         int
	Concurrency int
	Timeout     time.Duration
}

// PipelineConfig holds chunking, retrieval and worker settings
type PipelineConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	Retriever      string // "local" or "pgvector"
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from a .env file (when present) and environment variables
func LoadConfig() *Config {
	if os.Getenv("GO_ENVIRONMENT") != "test" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("config.dotenv.load_failed", "error", err)
		}
	}

	ollama := getEnv("OLLAMA_BASE_URL", "http://127.0.0.1:11434")
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "invoices.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:  getEnv("HTTP_ADDR", ":8001"),
			GRPCAddr:  getEnv("GRPC_ADDR", ":9001"),
			UploadDir: getEnv("UPLOAD_DIR", "invoices"),
			WatchDir:  getEnv("WATCH_DIR", ""),
		},
		OCR: OCRConfig{
			Engine:            strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
			Tesseract:         getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:          getEnv("PDFTOPPM_BIN", "pdftoppm"),
			HEICConverter:     strings.ToLower(getEnv("HEIC_CONVERTER", "magick")),
			TesseractLang:     getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:       getEnv("TESSDATA_PREFIX", ""),
			DPI:               getEnvAsInt("OCR_DPI", 300),
			MaxPages:          getEnvAsInt("OCR_MAX_PAGES", 5),
			MinTextLayerChars: getEnvAsInt("OCR_MIN_TEXT_LAYER_CHARS", 50),
			MinWidth:          getEnvAsInt("OCR_MIN_WIDTH", 1000),
			Timeout:           getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
			OllamaBaseURL: ollama,
			Model:         getEnv("CHAT_MODEL", "qwen2.5:3b-instruct"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:        getEnv("OPENAI_API_KEY", ""),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		Embedding: EmbeddingConfig{
			Provider:    strings.ToLower(getEnv("EMBEDDING_PROVIDER", "ollama")),
			Model:       getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dim:         getEnvAsInt("EMBEDDING_DIM", 768),
			Concurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
			Timeout:     getEnvAsDuration("EMBEDDING_TIMEOUT", time.Minute),
		},
		Pipeline: PipelineConfig{
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1500),
			ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 150),
			TopK:           getEnvAsInt("TOP_K", 4),
			Retriever:      strings.ToLower(getEnv("RETRIEVER", "local")),
			Workers:        getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:      getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 10*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required", ErrInvalidInput)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for postgres", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be ollama or openai", ErrInvalidInput)
	}
	if c.Embedding.Provider == "openai" && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for openai embeddings", ErrInvalidInput)
	}
	if c.Embedding.Dim <= 0 {
		return NewAppError("CONFIG_ERROR", "EMBEDDING_DIM must be positive", ErrInvalidInput)
	}
	if c.Pipeline.ChunkSize <= 0 || c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return NewAppError("CONFIG_ERROR", "CHUNK_OVERLAP must be smaller than CHUNK_SIZE", ErrInvalidInput)
	}
	if c.Pipeline.TopK <= 0 {
		return NewAppError("CONFIG_ERROR", "TOP_K must be positive", ErrInvalidInput)
	}
	if c.Pipeline.Retriever == "pgvector" && c.Database.Driver != "postgres" {
		return NewAppError("CONFIG_ERROR", "RETRIEVER=pgvector requires DB_DRIVER=postgres", ErrInvalidInput)
	}
	if c.Server.UploadDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	return nil
}
