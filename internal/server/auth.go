package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/pdfrag-go/internal/logging"
)

// Bearer challenges sent with 401 responses.
const (
	challengeMissing = `Bearer realm="pdfrag"`
	challengeInvalid = `Bearer realm="pdfrag", error="invalid_token"`
)

// authMiddleware requires "Authorization: Bearer <apiKey>" on every request.
// An empty apiKey disables the check; New warns about that once at startup.
// Tokens are compared as SHA-256 digests so timing reveals neither content
// nor length. The presented token is never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := sha256.Sum256([]byte(apiKey))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			deny(w, r, challengeMissing, "authorization required")
			return
		}
		got := sha256.Sum256([]byte(token))
		if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
			deny(w, r, challengeInvalid, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, r *http.Request, challenge, msg string) {
	logging.FromContext(r.Context()).Warn("auth: request rejected",
		slog.String("reason", msg),
		slog.String("path", r.URL.Path),
		slog.String("ip", clientIP(r)),
	)
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, msg, http.StatusUnauthorized)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive. Absent or malformed headers yield
// an empty string.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
