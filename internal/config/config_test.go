package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("EXTRACTION_BACKEND", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendGemini, cfg.Backend)
	assert.Equal(t, 4, cfg.DocumentWorkers)
	assert.Equal(t, 1, cfg.PageWorkers)
	assert.Equal(t, "balanced", cfg.DefaultMode)
	assert.Equal(t, "rolling", cfg.RateLimitReset)
	assert.Equal(t, 48*time.Hour, cfg.JobMaxAge)
	assert.Equal(t, int64(150*1024*1024), cfg.MaxUploadBytes())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EXTRACTION_BACKEND", "VERTEX")
	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("STAGING_BUCKET", "staging")
	t.Setenv("DOCUMENT_WORKERS", "8")
	t.Setenv("PAGE_WORKERS", "2")
	t.Setenv("RATE_LIMIT_RESET", "calendar")
	t.Setenv("JOB_MAX_AGE", "6h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendVertex, cfg.Backend)
	assert.Equal(t, 8, cfg.DocumentWorkers)
	assert.Equal(t, 2, cfg.PageWorkers)
	assert.Equal(t, "calendar", cfg.RateLimitReset)
	assert.Equal(t, 6*time.Hour, cfg.JobMaxAge)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"EXTRACTION_BACKEND": "openai"}},
		{"gemini without key", map[string]string{"EXTRACTION_BACKEND": "gemini", "GEMINI_API_KEY": ""}},
		{"vertex without bucket", map[string]string{"EXTRACTION_BACKEND": "vertex", "PROJECT_ID": "p", "STAGING_BUCKET": ""}},
		{"bad worker count", map[string]string{"GEMINI_API_KEY": "k", "DOCUMENT_WORKERS": "many"}},
		{"zero page workers", map[string]string{"GEMINI_API_KEY": "k", "PAGE_WORKERS": "0"}},
		{"bad mode", map[string]string{"GEMINI_API_KEY": "k", "DEFAULT_MODE": "turbo"}},
		{"firestore without project", map[string]string{"GEMINI_API_KEY": "k", "FIRESTORE_COLLECTION": "jobs", "PROJECT_ID": ""}},
		{"bad duration", map[string]string{"GEMINI_API_KEY": "k", "JOB_MAX_AGE": "two days"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
