package api

import (
	"net/http"
	"time"

	"cargo-route-service/internal/platform/auth"
	"cargo-route-service/internal/platform/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// statusWriter captures the final HTTP status code and number of bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Record implicit 200 responses when handlers write without calling WriteHeader.
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// accessLog logs one line per request with its final status, size and duration.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		logger.Get().Info("http request",
			zap.String("req_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.RequestURI()),
			zap.Int("status", sw.status),
			zap.Int("bytes", sw.bytes),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

// forwardBearer keeps the caller's bearer token on the request context so
// outbound calls made on its behalf can present it.
func forwardBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := auth.FromHeader(r.Header.Get("Authorization")); tok != "" {
			r = r.WithContext(auth.WithBearerToken(r.Context(), tok))
		}
		next.ServeHTTP(w, r)
	})
}
