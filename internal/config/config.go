// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
)

// Config holds every setting shared by the converter binaries.
type Config struct {
	Backend       string `validate:"oneof=vertex gemini"`
	ProjectID     string `validate:"required_if=Backend vertex"`
	VertexRegion  string `validate:"required_if=Backend vertex"`
	StagingBucket string `validate:"required_if=Backend vertex"`
	GeminiAPIKey  string `validate:"required_if=Backend gemini"`

	CacheDir            string
	CacheBucket         string
	FirestoreCollection string
	OutputDir           string `validate:"required"`
	OutputBucket        string
	TempDir             string

	DocumentWorkers int `validate:"min=1,max=64"`
	PageWorkers     int `validate:"min=1,max=64"`
	QueueSize       int `validate:"min=1"`

	DefaultMode       string `validate:"oneof=fast balanced accurate"`
	RateLimitReset    string `validate:"oneof=rolling calendar"`
	RateLimitTimezone string

	JobMaxAge        time.Duration `validate:"gt=0"`
	JobPurgeInterval time.Duration `validate:"gt=0"`
	MaxUploadMB      int           `validate:"min=1"`
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return v, nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Backend:             strings.ToLower(GetEnv("EXTRACTION_BACKEND", BackendGemini)),
		ProjectID:           GetEnv("PROJECT_ID", ""),
		VertexRegion:        GetEnv("VERTEX_AI_REGION", "us-central1"),
		StagingBucket:       GetEnv("STAGING_BUCKET", ""),
		GeminiAPIKey:        GetEnv("GEMINI_API_KEY", ""),
		CacheDir:            GetEnv("CACHE_DIR", "cache"),
		CacheBucket:         GetEnv("CACHE_BUCKET", ""),
		FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", ""),
		OutputDir:           GetEnv("OUTPUT_DIR", "outputs"),
		OutputBucket:        GetEnv("OUTPUT_BUCKET", ""),
		TempDir:             GetEnv("TEMP_DIR", ""),
		DefaultMode:         GetEnv("DEFAULT_MODE", "balanced"),
		RateLimitReset:      strings.ToLower(GetEnv("RATE_LIMIT_RESET", "rolling")),
		RateLimitTimezone:   GetEnv("RATE_LIMIT_TIMEZONE", "UTC"),
	}

	var err error
	if cfg.DocumentWorkers, err = getEnvInt("DOCUMENT_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.PageWorkers, err = getEnvInt("PAGE_WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = getEnvInt("QUEUE_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.MaxUploadMB, err = getEnvInt("MAX_UPLOAD_MB", 150); err != nil {
		return nil, err
	}
	if cfg.JobMaxAge, err = getEnvDuration("JOB_MAX_AGE", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.JobPurgeInterval, err = getEnvDuration("JOB_PURGE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.FirestoreCollection != "" && c.ProjectID == "" {
		return fmt.Errorf("invalid configuration: PROJECT_ID is required when FIRESTORE_COLLECTION is set")
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}
