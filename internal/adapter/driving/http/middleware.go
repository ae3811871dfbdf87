package httphandler

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
				)
				writeFailure(w, http.StatusInternalServerError, http.StatusInternalServerError, "Internal Server Error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requireSession rejects requests without a valid session token and stores
// the session's user ID in the request context. Cookie sessions must also
// pass the CSRF check on non-GET requests; bearer sessions are exempt since
// browsers never attach them implicitly.
func requireSession(secret []byte, logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			writeFailure(w, http.StatusUnauthorized, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, err := parseSession(secret, token)
		if err != nil {
			logger.Debug("session rejected", "path", r.URL.Path, "error", err)
			writeFailure(w, http.StatusUnauthorized, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if fromCookie {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				ensureCSRFCookie(w, r)
			} else if !validCSRF(r) {
				writeFailure(w, http.StatusForbidden, http.StatusForbidden, "Invalid CSRF token")
				return
			}
		}

		next(w, r.WithContext(withUserID(r.Context(), userID)))
	}
}
