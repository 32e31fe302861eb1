package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// checkOrigin accepts requests without an Origin header and those whose
// origin starts with a configured allowed origin
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.opts.AllowedOrigins) == 0 {
		return strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost")
	}

	// Prefix matching allows any port number
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// isPortAvailable checks if a port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = listener.Close() // best-effort check, the real bind may still race
	return true
}

// findAvailablePort tries the requested port, then the next ten
func findAvailablePort(requestedPort int) (int, error) {
	for i := 0; i <= 10; i++ {
		if isPortAvailable(requestedPort + i) {
			return requestedPort + i, nil
		}
	}
	return 0, fmt.Errorf("no available ports found (tried %d-%d)", requestedPort, requestedPort+10)
}
