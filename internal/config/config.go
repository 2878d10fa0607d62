package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMEINSIGHT_API_APIKEY, then legacy API_KEY)
// 4. .env / .env.local files
// 5. Default values - Lowest priority
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Watch         WatchConfig         `mapstructure:"watch"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// APIConfig describes how to reach the analysis backend
type APIConfig struct {
	BaseURL    string `mapstructure:"baseUrl"`
	APIKey     string `mapstructure:"apiKey"`
	AuthScheme string `mapstructure:"authScheme"` // "header" sends AuthHeader, "bearer" sends Authorization
	AuthHeader string `mapstructure:"authHeader"`

	StreamPath     string `mapstructure:"streamPath"`
	SyncPath       string `mapstructure:"syncPath"`
	HealthPath     string `mapstructure:"healthPath"`
	ChatPath       string `mapstructure:"chatPath"`
	ChatStreamPath string `mapstructure:"chatStreamPath"`

	WatchdogTimeout time.Duration `mapstructure:"watchdogTimeout"` // Max silence between stream events
	StreamDeadline  time.Duration `mapstructure:"streamDeadline"`  // Max total time on the stream before falling back
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`  // Timeout for the synchronous fallback and chat
	HealthTimeout   time.Duration `mapstructure:"healthTimeout"`
	WarmupTimeout   time.Duration `mapstructure:"warmupTimeout"`  // How long to wait for a cold backend
	WarmupInterval  time.Duration `mapstructure:"warmupInterval"` // Delay between readiness probes

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ServerConfig holds the gateway HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication for gateway callers
	APIKeys []string `mapstructure:"apiKeys"`

	// Browser origins allowed to call the gateway
	AllowedOrigins []string `mapstructure:"allowedOrigins"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
}

// WatchConfig holds inbox watcher configuration
type WatchConfig struct {
	Dir             string        `mapstructure:"dir"`
	OutputDir       string        `mapstructure:"outputDir"`
	Format          string        `mapstructure:"format"`
	JobFile         string        `mapstructure:"jobFile"`
	DebounceDelay   time.Duration `mapstructure:"debounceDelay"`
	ProcessExisting bool          `mapstructure:"processExisting"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from .env files, environment variables and a config file
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	loadDotEnv()

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("RESUMEINSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'RESUMEINSIGHT'")

	if explicit := os.Getenv("RESUMEINSIGHT_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
		log.Printf("[CONFIG] Using config file from RESUMEINSIGHT_CONFIG: %s", explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumeinsight/")
		v.AddConfigPath("$HOME/.resumeinsight")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/resumeinsight/, $HOME/.resumeinsight, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	if len(c.App.SupportedFormats) > 0 && !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}
	if c.Watch.Format != "" && len(c.App.SupportedFormats) > 0 && !slices.Contains(c.App.SupportedFormats, c.Watch.Format) {
		return fmt.Errorf("invalid watch format: %s", c.Watch.Format)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate limit requestsPerMin must be positive when rate limiting is enabled")
	}

	return nil
}

// Validate checks the backend connection settings
func (a APIConfig) Validate() error {
	if a.BaseURL == "" {
		return fmt.Errorf("API base URL is required (set RESUMEINSIGHT_API_BASEURL environment variable)")
	}
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", a.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("API base URL must use http or https, got %q", a.BaseURL)
	}

	switch a.AuthScheme {
	case "header":
		if a.AuthHeader == "" {
			return fmt.Errorf("authHeader is required when authScheme is 'header'")
		}
	case "bearer":
	default:
		return fmt.Errorf("invalid authScheme: %s (must be 'header' or 'bearer')", a.AuthScheme)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"watchdogTimeout", a.WatchdogTimeout},
		{"streamDeadline", a.StreamDeadline},
		{"requestTimeout", a.RequestTimeout},
		{"healthTimeout", a.HealthTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("API %s must be positive", d.name)
		}
	}
	if a.StreamDeadline < a.WatchdogTimeout {
		return fmt.Errorf("API streamDeadline (%s) must not be shorter than watchdogTimeout (%s)", a.StreamDeadline, a.WatchdogTimeout)
	}
	if a.WarmupTimeout > 0 && a.WarmupInterval <= 0 {
		return fmt.Errorf("API warmupInterval must be positive when warmupTimeout is set")
	}

	return nil
}

// RequireAPIKey reports a missing backend API key
func (c *Config) RequireAPIKey() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("API key is required (set RESUMEINSIGHT_API_APIKEY or API_KEY environment variable)")
	}
	return nil
}
