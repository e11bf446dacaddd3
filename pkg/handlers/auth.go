package handlers

import (
	"crypto/subtle"
	"net/http"
)

// SecretHeader carries the shared API secret on every request.
const SecretHeader = "X-Api-Secret"

// RequireSecret returns middleware that rejects requests whose secret header
// does not match. An empty secret disables the check entirely.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
