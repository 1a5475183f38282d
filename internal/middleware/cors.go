// Package middleware provides HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"strings"
)

// Reply metadata rides on X- headers next to audio bodies, so browsers
// need them exposed explicitly.
var exposedHeaders = []string{
	"X-Session-Id",
	"X-Transcript",
	"X-Model-Reply",
	"X-LLM-Source",
	"X-Agent-Stage",
	"X-Agent-Completed",
	"X-Error",
	"X-Error-Reason",
}

// CORS returns middleware that answers preflights and stamps CORS headers
// for the configured origins.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	expose := strings.Join(exposedHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-Id")
				w.Header().Set("Access-Control-Expose-Headers", expose)
				// Credentials only pair with explicit origins; echoing a
				// wildcard match with credentials enables CSRF.
				for _, o := range allowedOrigins {
					if o != "*" && o == origin {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
						break
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
