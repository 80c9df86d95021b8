package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/barista/internal/config"
)

// exposedHeaders lets browser clients read the tracing headers set by Trace.
//
//nolint:gochecknoglobals // Read-only header list.
var exposedHeaders = []string{"X-Trace-Id", "X-Request-Id"}

// CORS applies the configured cross-origin policy through rs/cors.
// A nil config disables the policy.
func CORS(cfg *config.CORSConfig) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return c.Handler
}
