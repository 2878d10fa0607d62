package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayCORSInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Gateway listening on http://%s\n", s.Addr())
	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET  /health       - Gateway liveness")
	_, _ = fmt.Fprintln(w, "  GET  /api/health   - Analysis service readiness")
	_, _ = fmt.Fprintln(w, "  GET  /stats        - Server statistics")
	_, _ = fmt.Fprintln(w, "  POST /api/analyze  - Analyze résumé PDF (multipart, SSE with Accept: text/event-stream)")
	_, _ = fmt.Fprintln(w, "  POST /api/chat     - Ask about an analysis")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo(w io.Writer) {
	if count := s.keyCount(); count > 0 {
		_, _ = fmt.Fprintf(w, "API authentication: ENABLED (%d keys configured)\n", count)
		_, _ = fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' header in requests to /api/analyze and /api/chat")
	} else {
		_, _ = fmt.Fprintln(w, "API authentication: DISABLED (no API keys configured)")
		_, _ = fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
	}
}

// displayCORSInfo shows the browser origins allowed to call the gateway
func (s *Server) displayCORSInfo(w io.Writer) {
	if len(s.AllowedOrigins) == 0 {
		_, _ = fmt.Fprintln(w, "CORS: no browser origins allowed")
		return
	}
	_, _ = fmt.Fprintf(w, "CORS allowed origins: %v\n", s.AllowedOrigins)
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Upload size limit: %.1f MB\n", float64(s.MaxFileSize)/(1024*1024))
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			_, _ = fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			_, _ = fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
		_, _ = fmt.Fprintln(w, "WARNING: No rate limiting configured!")
	}
}
