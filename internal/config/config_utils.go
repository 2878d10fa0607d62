package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// dotEnvFiles are loaded in order; values already in the environment win
var dotEnvFiles = []string{".env.local", ".env"}

// loadDotEnv loads variables from local .env files when present
func loadDotEnv() {
	for _, file := range dotEnvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			log.Printf("[CONFIG] Failed to load %s: %v", file, err)
			continue
		}
		log.Printf("[CONFIG] Loaded environment from %s", file)
	}
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAPIKeyFallback()
	c.applyServerAPIKeyFallbacks()
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	c.applyObservabilityDefaults()
}

// applyAPIKeyFallback honours the backend's own API_KEY variable
func (c *Config) applyAPIKeyFallback() {
	if c.API.APIKey == "" {
		c.API.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}
}

// applyServerAPIKeyFallbacks applies gateway API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("RESUMEINSIGHT_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"RESUMEINSIGHT_API_BASEURL",
		"RESUMEINSIGHT_API_APIKEY",
		"RESUMEINSIGHT_API_WATCHDOGTIMEOUT",
		"RESUMEINSIGHT_SERVER_PORT",
		"RESUMEINSIGHT_SERVER_HOST",
		"RESUMEINSIGHT_APP_LOGLEVEL",
		"RESUMEINSIGHT_VAULT_ENABLED",
		"API_KEY", // Legacy support
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] API Base URL: %s", c.API.BaseURL)
	if c.API.APIKey != "" {
		log.Println("[CONFIG] API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Auth Scheme: %s", c.API.AuthScheme)
	log.Printf("[CONFIG] Stream Watchdog: %s (deadline %s)", c.API.WatchdogTimeout, c.API.StreamDeadline)
	log.Printf("[CONFIG] Circuit Breaker Enabled: %t", c.API.CircuitBreaker.Enabled)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
