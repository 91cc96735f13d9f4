package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/auth"
	"cargo-route-service/internal/platform/httpclient"
	"cargo-route-service/internal/platform/obs"

	"github.com/shopspring/decimal"
)

type completeShipmentRequest struct {
	RouteID              string          `json:"route_id"`
	FinalCost            decimal.Decimal `json:"final_cost"`
	FinalDurationMinutes decimal.Decimal `json:"final_duration_minutes"`
	CompletedAt          time.Time       `json:"completed_at"`
}

// HTTPShipmentNotifier calls the shipment service's
// POST /shipments/{id}/complete endpoint. The caller's bearer token is
// forwarded when present, otherwise the configured service token is used.
type HTTPShipmentNotifier struct {
	session      *http.Client
	baseURL      string
	serviceToken string
}

func NewHTTPShipmentNotifier(baseURL, serviceToken string, timeout time.Duration) (*HTTPShipmentNotifier, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("shipment service url is empty")
	}
	return &HTTPShipmentNotifier{
		session:      httpclient.NewClient(timeout),
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
	}, nil
}

// MarkShipmentCompleted is idempotent: a 409 from the peer means the
// shipment was already completed and counts as delivered.
func (n *HTTPShipmentNotifier) MarkShipmentCompleted(ctx context.Context, c domain.ShipmentCompletion) (err error) {
	defer obs.Time(ctx, "shipment.MarkCompleted")(&err)

	payload, err := json.Marshal(completeShipmentRequest{
		RouteID:              c.RouteID,
		FinalCost:            c.FinalCost,
		FinalDurationMinutes: c.FinalDurationMinutes,
		CompletedAt:          c.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/shipments/%s/complete", n.baseURL, url.PathEscape(c.ShipmentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", "shipment-complete:"+c.ShipmentID)

	token, ok := auth.BearerToken(ctx)
	if !ok {
		token = n.serviceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.session.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("shipment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
