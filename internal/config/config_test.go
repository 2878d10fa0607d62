package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:         "http://localhost:5000",
		AuthScheme:      "header",
		AuthHeader:      "X-API-Key",
		WatchdogTimeout: 8 * time.Second,
		StreamDeadline:  3 * time.Minute,
		RequestTimeout:  2 * time.Minute,
		HealthTimeout:   10 * time.Second,
		WarmupTimeout:   time.Minute,
		WarmupInterval:  3 * time.Second,
	}
}

func TestAPIConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*APIConfig)
		expectError string
	}{
		{name: "valid", mutate: func(*APIConfig) {}},
		{name: "bearer scheme", mutate: func(a *APIConfig) { a.AuthScheme = "bearer"; a.AuthHeader = "" }},
		{name: "missing base URL", mutate: func(a *APIConfig) { a.BaseURL = "" }, expectError: "base URL is required"},
		{name: "non-http base URL", mutate: func(a *APIConfig) { a.BaseURL = "ftp://example.com" }, expectError: "http or https"},
		{name: "unknown auth scheme", mutate: func(a *APIConfig) { a.AuthScheme = "basic" }, expectError: "invalid authScheme"},
		{name: "header scheme without header", mutate: func(a *APIConfig) { a.AuthHeader = "" }, expectError: "authHeader is required"},
		{name: "zero watchdog", mutate: func(a *APIConfig) { a.WatchdogTimeout = 0 }, expectError: "watchdogTimeout must be positive"},
		{name: "deadline shorter than watchdog", mutate: func(a *APIConfig) { a.StreamDeadline = time.Second }, expectError: "must not be shorter"},
		{name: "warmup without interval", mutate: func(a *APIConfig) { a.WarmupInterval = 0 }, expectError: "warmupInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := validAPIConfig()
			tt.mutate(&api)
			err := api.Validate()
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, "X-API-Key", cfg.API.AuthHeader)
	assert.Equal(t, "/analyze-resume-stream", cfg.API.StreamPath)
	assert.Equal(t, "/analyze-resume", cfg.API.SyncPath)
	assert.Equal(t, 8*time.Second, cfg.API.WatchdogTimeout)
	assert.Equal(t, int64(16*1024*1024), cfg.App.MaxFileSize)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.API.CircuitBreaker.Enabled)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
	assert.Error(t, cfg.RequireAPIKey())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RESUMEINSIGHT_API_BASEURL", "https://scoring.example.com/")
	t.Setenv("RESUMEINSIGHT_API_WATCHDOGTIMEOUT", "5s")
	t.Setenv("API_KEY", "legacy-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://scoring.example.com", cfg.API.BaseURL, "trailing slash should be trimmed")
	assert.Equal(t, 5*time.Second, cfg.API.WatchdogTimeout)
	assert.Equal(t, "legacy-key", cfg.API.APIKey)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("API_KEY", "")
	// Registered so the variable loaded from .env is cleared after the test.
	t.Setenv("RESUMEINSIGHT_API_APIKEY", "")
	require.NoError(t, os.Unsetenv("RESUMEINSIGHT_API_APIKEY"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RESUMEINSIGHT_API_APIKEY=dotenv-key\n"), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.API.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	content := `api:
  baseUrl: http://backend:5000
  authScheme: bearer
  streamDeadline: 90s
app:
  defaultFormat: markdown
server:
  apiKeys: ["gateway-1"]
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("RESUMEINSIGHT_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://backend:5000", cfg.API.BaseURL)
	assert.Equal(t, "bearer", cfg.API.AuthScheme)
	assert.Equal(t, 90*time.Second, cfg.API.StreamDeadline)
	assert.Equal(t, "markdown", cfg.App.DefaultFormat)
	assert.Equal(t, []string{"gateway-1"}, cfg.Server.APIKeys)
}

func TestValidateFormats(t *testing.T) {
	cfg := &Config{
		API: validAPIConfig(),
		App: AppConfig{
			DefaultFormat:    "pdf",
			SupportedFormats: []string{"json", "text"},
			MaxFileSize:      1024,
		},
		Server: ServerConfig{Port: "8080"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid default format")

	cfg.App.DefaultFormat = "json"
	cfg.Watch.Format = "xml"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid watch format")

	cfg.Watch.Format = "text"
	assert.NoError(t, cfg.Validate())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitAndTrim(" a, b ,,c "))
	assert.Equal(t, []string{}, splitAndTrim(""))
}
