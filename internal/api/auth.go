package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// TokenMiddleware requires "Authorization: Bearer <token>" on the wrapped
// routes. An empty token disables the check.
func TokenMiddleware(token string) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	want := tokenDigest(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearer(r)
			if !ok || !hmac.Equal(tokenDigest(got), want) {
				log.Printf("⚠️ Unauthorized %s %s from %s", r.Method, r.URL.Path, GetClientIP(r))
				RecordConnectionRejected("auth")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="sparkfx"`)
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   "unauthorized",
					"message": "A valid API token is required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearer extracts the token of an Authorization header
func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// tokenDigest hashes a token so comparisons run in constant time regardless
// of length
func tokenDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
