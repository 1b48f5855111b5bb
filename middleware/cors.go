package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS allows any origin. Auth travels in the Authorization header, so
// credentialed requests are not enabled; browsers refuse them with "*".
func CORS() func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		handlers.ExposedHeaders([]string{"Content-Length"}),
	)
}
