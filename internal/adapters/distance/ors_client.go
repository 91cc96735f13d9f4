package distance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cargo-route-service/internal/platform/httpclient"
)

// ORSOptions configures the OpenRouteService client.
type ORSOptions struct {
	APIKey  string
	BaseURL string
	Profile string
	// Country restricts geocoding results. Empty means worldwide.
	Country string
	Timeout time.Duration
}

// ORSClient implements ports.Geocoder and ports.RoutingProvider using
// OpenRouteService. Each call is a single request bounded by the client
// timeout; there are no internal retries.
//
// The client is safe for concurrent use.
type ORSClient struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	country string
}

func NewORSClient(opts ORSOptions) (*ORSClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openrouteservice.org"
	}
	if opts.Profile == "" {
		opts.Profile = "driving-hgv"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}

	return &ORSClient{
		session: httpclient.NewClient(opts.Timeout),
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		profile: opts.Profile,
		country: opts.Country,
	}, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (o *ORSClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do executes req and reads the whole body. Any status >= 400 is an
// *httpStatusError.
func (o *ORSClient) do(req *http.Request) ([]byte, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return b, nil
}
