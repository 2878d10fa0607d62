package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"resumeinsight/internal/errors"
)

// KeySource reads the gateway caller keys and their secret version
type KeySource interface {
	GetVersionedStringSliceSecret(path, key string) ([]string, int64, error)
}

// KeyWatcher polls Vault for rotated gateway API keys and swaps them in.
// It only applies a secret whose version is newer than the last one seen.
type KeyWatcher struct {
	mu sync.RWMutex

	source       KeySource
	secretPath   string
	pollInterval time.Duration
	apply        func(keys []string)
	logger       *errors.Logger

	cancel      context.CancelFunc
	done        chan struct{}
	running     bool
	lastVersion int64
	lastError   string
	lastCheck   time.Time
}

// NewKeyWatcher creates a watcher that hands new keys to apply
func NewKeyWatcher(source KeySource, secretPath string, pollInterval time.Duration, apply func([]string), logger *errors.Logger) *KeyWatcher {
	if logger == nil {
		logger = errors.Discard()
	}
	return &KeyWatcher{
		source:       source,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		apply:        apply,
		logger:       logger,
	}
}

// Start begins polling until ctx is done or Stop is called
func (kw *KeyWatcher) Start(ctx context.Context) error {
	kw.mu.Lock()
	defer kw.mu.Unlock()

	if kw.running {
		return fmt.Errorf("key watcher is already running")
	}
	if kw.pollInterval <= 0 {
		return fmt.Errorf("key watcher poll interval must be positive")
	}

	ctx, kw.cancel = context.WithCancel(ctx)
	kw.done = make(chan struct{})
	kw.running = true
	go kw.pollLoop(ctx, kw.done)

	kw.logger.Info("Gateway key watcher started", "secret_path", kw.secretPath, "poll_interval", kw.pollInterval)
	return nil
}

// Stop stops polling and waits for the loop to exit
func (kw *KeyWatcher) Stop() {
	kw.mu.Lock()
	if !kw.running {
		kw.mu.Unlock()
		return
	}
	kw.cancel()
	done := kw.done
	kw.running = false
	kw.mu.Unlock()

	<-done
	kw.logger.Info("Gateway key watcher stopped")
}

func (kw *KeyWatcher) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := kw.CheckNow(); err != nil {
				kw.logger.LogError(err, "Failed to check Vault for gateway key updates")
			}
		case <-ctx.Done():
			return
		}
	}
}

// CheckNow reads the secret once and applies it when its version advanced
func (kw *KeyWatcher) CheckNow() (bool, error) {
	keys, version, err := kw.source.GetVersionedStringSliceSecret(kw.secretPath, "keys")

	kw.mu.Lock()
	defer kw.mu.Unlock()
	kw.lastCheck = time.Now()

	if err != nil {
		kw.lastError = err.Error()
		return false, fmt.Errorf("failed to read gateway keys: %w", err)
	}
	kw.lastError = ""

	if version <= kw.lastVersion {
		return false, nil
	}
	if len(keys) == 0 {
		kw.logger.Warn("Ignoring empty gateway key set", "version", version)
		return false, nil
	}

	kw.lastVersion = version
	kw.apply(keys)
	kw.logger.Info("Gateway API keys rotated", "version", version, "count", len(keys))
	return true, nil
}

// Status returns the current status of the watcher for stats reporting
func (kw *KeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	status := map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
	}
	if !kw.lastCheck.IsZero() {
		status["last_check"] = kw.lastCheck.UTC().Format(time.RFC3339)
	}
	if kw.lastError != "" {
		status["last_error"] = kw.lastError
	}
	return status
}
