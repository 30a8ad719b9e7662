package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the API's allowed origin policy. The
// session header is exposed so browsers can persist a freshly minted cart token.
func CORS(origins []string, sessionHeader string) func(http.Handler) http.Handler {
	if sessionHeader == "" {
		sessionHeader = "X-Session-Token"
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", sessionHeader},
		ExposedHeaders:   []string{sessionHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
