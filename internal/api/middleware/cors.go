package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"energy-ml/internal/config"
)

// CORS builds the cross-origin policy. A "*" origin combined with
// credentials reflects the caller's Origin, since browsers reject a
// literal wildcard on credentialed requests.
func CORS(cfg config.CORSConfig) *cors.Cors {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard && cfg.AllowCredentials {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = cfg.AllowedOrigins
	}
	return cors.New(opts)
}
