package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/logging"
)

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logging.GetGlobalLogger().WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start).String(),
			"ip":       r.RemoteAddr,
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware recovers from panics and returns 500 error.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.GetGlobalLogger().WithField("panic", err).Error("Recovered from panic")
				respondError(w, http.StatusInternalServerError, apperrors.CodeInternalError, "An internal server error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware adds CORS headers to responses.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type walletKey struct{}

// walletFromContext returns the authenticated wallet for the request, if any.
func walletFromContext(ctx context.Context) (string, bool) {
	wallet, ok := ctx.Value(walletKey{}).(string)
	return wallet, ok && wallet != ""
}

// SessionResolver validates a session token and returns the wallet it is
// bound to.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// AuthMiddleware resolves the session credential from the Authorization
// header or the session cookie and stores the wallet on the request context.
// Requests without a valid session fail uniformly with AUTH_REQUIRED.
func AuthMiddleware(sessions SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, cookieName)
			if token == "" {
				respondError(w, http.StatusUnauthorized, apperrors.CodeAuthRequired, "authentication required", nil)
				return
			}

			wallet, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				respondServiceError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), walletKey{}, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken prefers the bearer header, falling back to the session cookie.
func extractToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return ""
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
