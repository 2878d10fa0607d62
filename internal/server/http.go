package server

import (
	"context"
	"sync"
	"time"

	"resumeinsight/internal/client"
	"resumeinsight/internal/config"
	"resumeinsight/internal/document"
	resumeErrors "resumeinsight/internal/errors"
	"resumeinsight/internal/observability"
	"resumeinsight/internal/types"
)

// multipartOverhead leaves room for form fields and boundaries around the PDF
const multipartOverhead = 1 << 20

// Backend is the analysis service the gateway forwards to
type Backend interface {
	Analyze(ctx context.Context, req types.AnalysisRequest, onProgress client.ProgressFunc) (*types.AnalysisResult, error)
	Health(ctx context.Context) (*types.HealthStatus, error)
	Chat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	BreakerStats() map[string]any
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP gateway
type Server struct {
	Host    string
	Port    string
	Version string

	Backend Backend

	// API Authentication
	keysMu  sync.RWMutex
	APIKeys map[string]bool

	AllowedOrigins []string

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upload limits
	MaxFileSize    int64
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Observability *observability.ObservabilityManager
	KeyWatcher    *KeyWatcher

	Logger *resumeErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxFileSize    int64
	RateLimit      *config.RateLimitConfig
}

// ConfigFromApp builds a ServerConfig from the loaded application configuration
func ConfigFromApp(appCfg *config.Config, version string) ServerConfig {
	rateLimit := appCfg.Server.RateLimit
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		APIKeys:        appCfg.Server.APIKeys,
		AllowedOrigins: appCfg.Server.AllowedOrigins,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxFileSize:    appCfg.App.MaxFileSize,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(backend Backend, cfg ServerConfig, om *observability.ObservabilityManager, logger *resumeErrors.Logger) *Server {
	if logger == nil {
		logger = resumeErrors.Discard()
	}
	maxFileSize := cfg.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = document.DefaultMaxSize
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		Backend:        backend,
		AllowedOrigins: cfg.AllowedOrigins,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxFileSize:    maxFileSize,
		MaxRequestSize: maxFileSize + multipartOverhead,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Observability:  om,
		Logger:         logger,
	}
	s.SetAPIKeys(cfg.APIKeys)
	return s
}

// SetAPIKeys replaces the accepted caller keys
func (s *Server) SetAPIKeys(keys []string) {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range keys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	s.keysMu.Lock()
	s.APIKeys = apiKeyMap
	s.keysMu.Unlock()
}

func (s *Server) keyCount() int {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return len(s.APIKeys)
}

func (s *Server) validKey(key string) bool {
	s.keysMu.RLock()
	defer s.keysMu.RUnlock()
	return s.APIKeys[key]
}
