package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Analysis backend
	v.SetDefault("api.baseUrl", "http://localhost:5000")
	v.SetDefault("api.apiKey", "")
	v.SetDefault("api.authScheme", "header")
	v.SetDefault("api.authHeader", "X-API-Key")
	v.SetDefault("api.streamPath", "/analyze-resume-stream")
	v.SetDefault("api.syncPath", "/analyze-resume")
	v.SetDefault("api.healthPath", "/health")
	v.SetDefault("api.chatPath", "/api/chat")
	v.SetDefault("api.chatStreamPath", "/api/chat/stream")
	v.SetDefault("api.watchdogTimeout", 8*time.Second)
	v.SetDefault("api.streamDeadline", 3*time.Minute) // Bounds a stream that only ever sends progress
	v.SetDefault("api.requestTimeout", 120*time.Second)
	v.SetDefault("api.healthTimeout", 10*time.Second)
	v.SetDefault("api.warmupTimeout", 90*time.Second) // Free-tier hosts can take a minute to wake
	v.SetDefault("api.warmupInterval", 3*time.Second)

	// Circuit breaker around the synchronous, health and chat calls
	v.SetDefault("api.circuitBreaker.enabled", true)
	v.SetDefault("api.circuitBreaker.maxRequests", 3)
	v.SetDefault("api.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("api.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("api.circuitBreaker.minRequests", 3)
	v.SetDefault("api.circuitBreaker.failureThreshold", 0.6)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown", "yaml"})
	v.SetDefault("app.maxFileSize", 16*1024*1024) // Matches the backend upload limit

	// Gateway Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 6*time.Minute) // Covers stream deadline plus fallback
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 30)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// Inbox watcher
	v.SetDefault("watch.dir", "./inbox")
	v.SetDefault("watch.outputDir", "./results")
	v.SetDefault("watch.format", "json")
	v.SetDefault("watch.jobFile", "")
	v.SetDefault("watch.debounceDelay", time.Second)
	v.SetDefault("watch.processExisting", false)

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://127.0.0.1:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.pollInterval", 5*time.Minute)
	v.SetDefault("vault.secrets.apiKey", "")
	v.SetDefault("vault.secrets.gatewayKeys", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumeinsight")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
