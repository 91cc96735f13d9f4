package domain

// Deposit is an intermediate storage site a route may pass through.
type Deposit struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
}

// Waypoint is one end of a leg: a raw point for shipment endpoints,
// or a deposit reference for intermediate stops.
type Waypoint struct {
	Point     GeoPoint `json:"point"`
	DepositID string   `json:"deposit_id,omitempty"`
	Label     string   `json:"label,omitempty"`
}

func DepositWaypoint(d Deposit) Waypoint {
	return Waypoint{Point: d.Location, DepositID: d.ID, Label: d.Name}
}

func (w Waypoint) IsDeposit() bool { return w.DepositID != "" }
