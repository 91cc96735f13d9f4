package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentCompletion is what the shipment's owning service receives once
// every leg of its route has completed.
type ShipmentCompletion struct {
	ShipmentID           string          `json:"shipment_id"`
	RouteID              string          `json:"route_id"`
	FinalCost            decimal.Decimal `json:"final_cost"`
	FinalDurationMinutes decimal.Decimal `json:"final_duration_minutes"`
	CompletedAt          time.Time       `json:"completed_at"`
}
