package httpclient

import (
	"net/http"
	"time"

	"cargo-route-service/internal/platform/logger"

	"go.uber.org/zap"
)

// LoggingRoundTripper logs outbound requests to providers and peer services.
type LoggingRoundTripper struct {
	Proxied http.RoundTripper
}

func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// Query strings can carry api keys; log the path only.
	target := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		logger.Get().Warn("outbound request failed",
			zap.String("method", req.Method),
			zap.String("url", target),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Get().Debug("outbound request",
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with a fixed timeout and request logging.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{Proxied: http.DefaultTransport},
		Timeout:   timeout,
	}
}
