package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"resumeinsight/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// How often the gateway re-reads its caller keys, 0 disables polling
	PollInterval time.Duration `mapstructure:"pollInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault (KVv2 paths)
type VaultSecrets struct {
	// APIKey holds the backend API key under the "api_key" field
	APIKey string `mapstructure:"apiKey"`
	// GatewayKeys holds comma-separated gateway caller keys under the "keys" field
	GatewayKeys string `mapstructure:"gatewayKeys"`
}

// SecretReader is the subset of Vault access the secret loaders need
type SecretReader interface {
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient creates a connected Vault client, or nil when Vault is disabled
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create vault client", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeTransportFailure,
			fmt.Sprintf("failed to connect to vault at %s", config.Address), err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", config.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("failed to read vault token file %s", config.TokenFile), err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// readKV2 reads the data map of a KVv2 secret
func (vc *VaultClient) readKV2(path string) (map[string]any, int64, error) {
	if vc == nil {
		return nil, 0, fmt.Errorf("vault client not initialized")
	}
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, 0, fmt.Errorf("secret not found at path: %s", path)
	}
	return unpackKV2(secret.Data, path)
}

// unpackKV2 splits a raw KVv2 response into its data and version
func unpackKV2(raw map[string]any, path string) (map[string]any, int64, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, 0, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return data, 0, nil
	}
	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, 0, err
	}
	return data, version, nil
}

// parseVersionValue parses version value from the types Vault may return
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	data, version, err := vc.readKV2(path)
	if err != nil {
		return "", err
	}
	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"version", version,
			"masked_value", MaskSecret(strValue))
	}
	return strValue, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitAndTrim(value), nil
}

// GetVersionedStringSliceSecret returns a comma-separated value together with the secret version
func (vc *VaultClient) GetVersionedStringSliceSecret(path, key string) ([]string, int64, error) {
	data, version, err := vc.readKV2(path)
	if err != nil {
		return nil, 0, err
	}
	strValue, ok := data[key].(string)
	if !ok {
		return nil, 0, fmt.Errorf("key '%s' not found or not a string in secret %s", key, path)
	}
	return splitAndTrim(strValue), version, nil
}

// MaskSecret keeps only the edges of a secret for logging
func MaskSecret(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	if value != "" {
		return "****"
	}
	return ""
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, config, logger)
}

// applySecrets copies configured secrets from reader into config
func applySecrets(reader SecretReader, config *Config, logger *errors.Logger) error {
	secrets := config.Vault.Secrets

	if secrets.APIKey != "" {
		key, err := reader.GetStringSecret(secrets.APIKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load API key from vault: %w", err)
		}
		if key != "" {
			config.API.APIKey = key
			if logger != nil {
				logger.Info("Backend API key loaded from Vault", "path", secrets.APIKey)
			}
		} else if logger != nil {
			logger.Warn("Empty API key found in Vault", "path", secrets.APIKey)
		}
	}

	if secrets.GatewayKeys != "" {
		keys, err := reader.GetStringSliceSecret(secrets.GatewayKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load gateway API keys from vault: %w", err)
		}
		if len(keys) > 0 {
			config.Server.APIKeys = keys
			if logger != nil {
				logger.Info("Gateway API keys loaded from Vault", "count", len(keys))
			}
		} else if logger != nil {
			logger.Warn("No gateway API keys found in Vault", "path", secrets.GatewayKeys)
		}
	}

	return nil
}
