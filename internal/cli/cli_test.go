package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumeinsight/internal/config"
	"resumeinsight/internal/document/documenttest"
	"resumeinsight/internal/errors"
	"resumeinsight/internal/eventstream"
	"resumeinsight/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:         baseURL,
			APIKey:          "test-key",
			AuthScheme:      "header",
			AuthHeader:      "X-API-Key",
			StreamPath:      "/analyze-resume-stream",
			SyncPath:        "/analyze-resume",
			HealthPath:      "/health",
			ChatPath:        "/api/chat",
			ChatStreamPath:  "/api/chat/stream",
			WatchdogTimeout: time.Second,
			StreamDeadline:  5 * time.Second,
			RequestTimeout:  5 * time.Second,
			HealthTimeout:   2 * time.Second,
		},
		App: config.AppConfig{
			DefaultFormat:    "text",
			SupportedFormats: []string{"json", "yaml", "text", "markdown"},
			MaxFileSize:      1 << 20,
		},
	}
}

func sampleResult() types.AnalysisResult {
	return types.AnalysisResult{
		OverallScore:    82,
		SectionScores:   map[string]int{"experience": 80},
		ATSScore:        70,
		Strengths:       []string{"Clear impact statements"},
		Weaknesses:      []string{"No summary"},
		Recommendations: []string{"Add a summary"},
	}
}

func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.HealthStatus{Status: "healthy", Service: "analysis", Version: "1.4.0"})
	})
	mux.HandleFunc("/analyze-resume-stream", func(w http.ResponseWriter, r *http.Request) {
		eventstream.SetHeaders(w)
		w.WriteHeader(http.StatusOK)
		_ = eventstream.WriteEvent(w, eventstream.EventProgress, types.ProgressEvent{Stage: types.StageATSAnalysis, Progress: 50, Message: "Checking layout"})
		_ = eventstream.WriteEvent(w, eventstream.EventResult, sampleResult())
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.ChatResponse{Response: "Lead with impact."})
	})
	mux.HandleFunc("/api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		eventstream.SetHeaders(w)
		w.WriteHeader(http.StatusOK)
		_ = eventstream.WriteEvent(w, "message", types.ChatChunk{Token: "Lead "})
		_ = eventstream.WriteEvent(w, "message", types.ChatChunk{Token: "with impact."})
		_ = eventstream.WriteEvent(w, "message", types.ChatChunk{Done: true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// run executes the CLI and returns stdout and stderr
func run(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(withRuntime(context.Background(), cfg, errors.Discard()))
	return stdout.String(), stderr.String(), err
}

func writeResume(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, documenttest.MinimalPDF(1), 0600))
	return path
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, testConfig("http://127.0.0.1:1"), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "resumeinsight version dev")
	assert.Contains(t, stdout, "Git commit:")
}

func TestAnalyzeCommand(t *testing.T) {
	srv := newFakeService(t)

	stdout, stderr, err := run(t, testConfig(srv.URL), "analyze", writeResume(t))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Overall Score: 82/100 (Excellent)")
	assert.Contains(t, stderr, "[ 50%] ATS analysis: Checking layout")
}

func TestAnalyzeCommandWritesFile(t *testing.T) {
	srv := newFakeService(t)
	out := filepath.Join(t.TempDir(), "result.json")

	stdout, _, err := run(t, testConfig(srv.URL), "analyze", writeResume(t), "--no-wait", "--format", "json", "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 82, result.OverallScore)
}

func TestAnalyzeCommandValidation(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := run(t, cfg, "analyze", writeResume(t), "--format", "html")
		require.Error(t, err)
	})

	t.Run("both job flags", func(t *testing.T) {
		_, _, err := run(t, cfg, "analyze", writeResume(t), "--job", "Go", "--job-file", "job.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be used together")
	})

	t.Run("missing api key", func(t *testing.T) {
		noKey := testConfig("http://127.0.0.1:1")
		noKey.API.APIKey = ""
		_, _, err := run(t, noKey, "analyze", writeResume(t))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := run(t, cfg, "analyze", filepath.Join(t.TempDir(), "missing.pdf"))
		require.Error(t, err)
	})
}

func TestHealthCommand(t *testing.T) {
	srv := newFakeService(t)

	stdout, _, err := run(t, testConfig(srv.URL), "health")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Status: healthy")
	assert.Contains(t, stdout, "Version: 1.4.0")
}

func writeAnalysis(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(sampleResult())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestChatCommand(t *testing.T) {
	srv := newFakeService(t)
	analysis := writeAnalysis(t)

	t.Run("streamed", func(t *testing.T) {
		stdout, stderr, err := run(t, testConfig(srv.URL), "chat", analysis, "How do I improve?", "--session", "s-1")
		require.NoError(t, err)
		assert.Equal(t, "Lead with impact.\n", stdout)
		assert.Contains(t, stderr, "Session: s-1")
	})

	t.Run("no stream", func(t *testing.T) {
		stdout, stderr, err := run(t, testConfig(srv.URL), "chat", analysis, "How do I improve?", "--no-stream")
		require.NoError(t, err)
		assert.Equal(t, "Lead with impact.\n", stdout)
		assert.Contains(t, stderr, "Session: ")
	})

	t.Run("invalid analysis file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))
		_, _, err := run(t, testConfig(srv.URL), "chat", path, "Hi")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})
}

func TestWatchCommandRequiresDir(t *testing.T) {
	_, _, err := run(t, testConfig("http://127.0.0.1:1"), "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directory to watch")
}

func TestKeyRotationEnabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	assert.False(t, keyRotationEnabled(cfg))

	cfg.Vault.Enabled = true
	cfg.Vault.Secrets.GatewayKeys = "secret/data/gateway"
	assert.False(t, keyRotationEnabled(cfg), "poll interval unset")

	cfg.Vault.PollInterval = time.Minute
	assert.True(t, keyRotationEnabled(cfg))
}

func TestMissingConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"health"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config not found")
}
