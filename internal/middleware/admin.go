package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireAdmin gates an endpoint behind the admin token, accepted from the
// X-Admin-Token header or a token query parameter. Comparison is
// constant-time.
func RequireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tokenMatches(AdminTokenFromRequest(r), token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","message":"invalid or missing admin token"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminTokenFromRequest extracts the admin token presented on a request,
// preferring the X-Admin-Token header over the token query parameter.
func AdminTokenFromRequest(r *http.Request) string {
	if t := r.Header.Get("X-Admin-Token"); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// TokenMatches reports whether the presented token equals the expected one.
// Comparison is constant-time; an empty expected token never matches.
func TokenMatches(presented, expected string) bool {
	return tokenMatches(presented, expected)
}

func tokenMatches(presented, expected string) bool {
	if presented == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
