package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"resumeinsight/internal/errors"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterEvictionAge     = 10 * time.Minute
)

// limiterEntry is the token bucket of one caller
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterManager keeps one token bucket per caller key (IP or API key)
type LimiterManager struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	rate      rate.Limit // requests per second
	burst     int
	denied    uint64
	done      chan struct{}
	closeOnce sync.Once
	logger    *errors.Logger
}

// RateLimiter is the limiter manager used by the gateway
type RateLimiter = LimiterManager

// NewRateLimiter creates a new manager.
// requestsPerMin is the number of requests allowed per minute,
// burstCapacity the token bucket size.
func NewRateLimiter(requestsPerMin int, burstCapacity int, logger *errors.Logger) *LimiterManager {
	if burstCapacity < 1 {
		burstCapacity = 1
	}

	m := &LimiterManager{
		entries: make(map[string]*limiterEntry),
		rate:    rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burstCapacity,
		done:    make(chan struct{}),
		logger:  logger,
	}

	go m.cleanupRoutine(limiterCleanupInterval)
	return m
}

// Allow takes a token from the bucket of key without blocking
func (m *LimiterManager) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.entries[key] = entry
	}
	entry.lastSeen = time.Now()

	if entry.limiter.Allow() {
		return true
	}
	m.denied++
	return false
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"enabled":         true,
		"active_limiters": len(m.entries),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
		"denied_total":    m.denied,
	}
}

func (m *LimiterManager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.evictIdle(now.Add(-limiterEvictionAge))
		case <-m.done:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff
func (m *LimiterManager) evictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for key, entry := range m.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(m.entries, key)
			evicted++
		}
	}

	if m.logger != nil && evicted > 0 {
		m.logger.Debug("Rate limiter cleanup completed",
			"evicted", evicted,
			"remaining_limiters", len(m.entries))
	}
	return evicted
}

// Close stops the cleanup goroutine
func (m *LimiterManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware creates rate limiting middleware using golang.org/x/time/rate.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rateLimitKey := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if rateLimitKey == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(rateLimitKey) {
				s.Logger.Info("Rate limit exceeded",
					"key_type", keyType(rateLimitKey),
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				s.Observability.GetMetrics().RecordRateLimitHit(r.Context(), keyType(rateLimitKey))
				w.Header().Set("Retry-After", "60")
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// keyType returns "api" or "ip" for a rate limit key
func keyType(rateLimitKey string) string {
	kind, _, _ := strings.Cut(rateLimitKey, ":")
	return kind
}

// Helper to consolidate key extraction logic
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}

	if byIP {
		return "ip:" + getClientIP(r)
	}

	return ""
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return xri
		}
	}

	// Fall back to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseFirstIP parses the first valid IP from a comma-separated list
func parseFirstIP(ips string) string {
	for ip := range strings.SplitSeq(ips, ",") {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			return ip
		}
	}
	return ""
}
