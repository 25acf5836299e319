package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the docingest API server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Ingest   IngestConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

type GeminiConfig struct {
	APIKey      string
	EmbedModel  string
	VisionModel string
	Timeout     time.Duration
}

type IngestConfig struct {
	ChunkTargetTokens  int
	ChunkOverlapTokens int
	EmbedBatchSize     int
	ProcessLockTTL     time.Duration
}

// Load reads configuration from the environment (and a .env file, if one
// exists) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("DOCINGEST_PORT", 8080),
			Env:                envString("DOCINGEST_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 120),
			CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          envString("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PresignTTL:      envDuration("S3_PRESIGN_TTL", 15*time.Minute),
		},
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			EmbedModel:  envString("GEMINI_EMBED_MODEL", "text-embedding-004"),
			VisionModel: envString("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
			Timeout:     envDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		Ingest: IngestConfig{
			ChunkTargetTokens:  envInt("CHUNK_TARGET_TOKENS", 500),
			ChunkOverlapTokens: envInt("CHUNK_OVERLAP_TOKENS", 50),
			EmbedBatchSize:     envInt("EMBED_BATCH_SIZE", 16),
			ProcessLockTTL:     envDuration("PROCESS_LOCK_TTL", 2*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}
	if c.Storage.Endpoint != "" && !isHTTPURL(c.Storage.Endpoint) {
		return fmt.Errorf("S3_ENDPOINT must start with http:// or https://, got %q", c.Storage.Endpoint)
	}
	if (c.Storage.AccessKeyID == "") != (c.Storage.SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	if c.Ingest.ChunkTargetTokens <= 0 {
		return fmt.Errorf("CHUNK_TARGET_TOKENS must be positive, got %d", c.Ingest.ChunkTargetTokens)
	}
	if c.Ingest.ChunkOverlapTokens < 0 || c.Ingest.ChunkOverlapTokens >= c.Ingest.ChunkTargetTokens {
		return fmt.Errorf("CHUNK_OVERLAP_TOKENS must be in [0, CHUNK_TARGET_TOKENS), got %d", c.Ingest.ChunkOverlapTokens)
	}
	if c.Ingest.EmbedBatchSize <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.Ingest.EmbedBatchSize)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
