package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders adds security headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// MaxBodySize limits request body size.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateRequest rejects bodies that are not JSON and paths with
// traversal or script patterns.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			// Allow empty body with no content-type
			if r.ContentLength > 0 && !strings.HasPrefix(ct, "application/json") {
				http.Error(w, `{"error":"content-type must be application/json"}`, http.StatusUnsupportedMediaType)
				return
			}
		}

		if containsSuspiciousPatterns(r.URL.Path) || containsSuspiciousPatterns(r.URL.RawQuery) {
			http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// containsSuspiciousPatterns checks for common attack patterns.
func containsSuspiciousPatterns(input string) bool {
	if input == "" {
		return false
	}

	suspicious := []string{
		"..",          // Path traversal
		"//",          // Path manipulation
		"<script",     // XSS
		"javascript:", // XSS
	}

	lower := strings.ToLower(input)
	for _, s := range suspicious {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
