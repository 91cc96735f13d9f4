package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// PostgresStore implements the repository ports and the transactor on
// top of database/sql with the pgx driver.
type PostgresStore struct{ DB *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

var (
	_ ports.TariffRepository  = (*PostgresStore)(nil)
	_ ports.DepositRepository = (*PostgresStore)(nil)
	_ ports.CarrierRepository = (*PostgresStore)(nil)
	_ ports.RouteRepository   = (*PostgresStore)(nil)
	_ ports.Transactor        = (*PostgresStore)(nil)
	_ Seeder                  = (*PostgresStore)(nil)
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// checkRowID maps ids that cannot exist in a UUID key column to not found.
func checkRowID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ActiveTariff(ctx context.Context) (_ *domain.Tariff, err error) {
	defer obs.Time(ctx, "store.ActiveTariff")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres store: DB is nil")
	}

	var t domain.Tariff
	err = s.DB.QueryRowContext(ctx, `
	SELECT id, fixed_management_fee, fuel_unit_price
	FROM tariffs
	WHERE active
	LIMIT 1;
	`).Scan(&t.ID, &t.FixedManagementFee, &t.FuelUnitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active tariff: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("active tariff: query tariffs table: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT volume_min, volume_max, weight_min, weight_max, cost_per_distance_unit
	FROM tariff_bands
	WHERE tariff_id = $1
	ORDER BY position;
	`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("active tariff: query tariff_bands table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.TariffBand
		if err := rows.Scan(&b.VolumeMin, &b.VolumeMax, &b.WeightMin, &b.WeightMax, &b.CostPerDistanceUnit); err != nil {
			return nil, fmt.Errorf("active tariff: scan band: %w", err)
		}
		t.Bands = append(t.Bands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active tariff: row iteration: %w", err)
	}

	return &t, nil
}

func (s *PostgresStore) ListDeposits(ctx context.Context) ([]domain.Deposit, error) {
	if s.DB == nil {
		return nil, errors.New("postgres store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, name, lat, lon
	FROM deposits
	ORDER BY id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list deposits: query deposits table: %w", err)
	}
	defer rows.Close()

	deposits := make([]domain.Deposit, 0, 32)
	for rows.Next() {
		var d domain.Deposit
		if err := rows.Scan(&d.ID, &d.Name, &d.Location.Lat, &d.Location.Lon); err != nil {
			return nil, fmt.Errorf("list deposits: scan row: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deposits: row iteration: %w", err)
	}

	return deposits, nil
}

const carrierColumns = `id, plate, max_weight, max_volume, cost_base, cost_per_distance_unit, fuel_consumption_rate, available`

func scanCarrier(r rowScanner) (domain.Carrier, error) {
	var c domain.Carrier
	err := r.Scan(&c.ID, &c.Plate, &c.MaxWeight, &c.MaxVolume, &c.CostBase, &c.CostPerDistanceUnit, &c.FuelConsumptionRate, &c.Available)
	return c, err
}

func (s *PostgresStore) GetCarrier(ctx context.Context, id string) (*domain.Carrier, error) {
	if s.DB == nil {
		return nil, errors.New("postgres store: DB is nil")
	}

	c, err := scanCarrier(s.DB.QueryRowContext(ctx, `SELECT `+carrierColumns+` FROM carriers WHERE id = $1;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("carrier %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get carrier %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("postgres store: DB is nil")
	}
	return loadRoute(ctx, s.DB, id, false)
}

func (s *PostgresStore) GetLeg(ctx context.Context, id string) (*domain.Leg, error) {
	if s.DB == nil {
		return nil, errors.New("postgres store: DB is nil")
	}
	if err := checkRowID("leg", id); err != nil {
		return nil, err
	}

	l, err := scanLeg(s.DB.QueryRowContext(ctx, `SELECT `+legColumns+` FROM legs WHERE id = $1;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("leg %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get leg %s: %w", id, err)
	}
	return &l, nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Serialization comes
// from explicit row locks taken by the StoreTx methods.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.StoreTx) error) error {
	if s.DB == nil {
		return errors.New("postgres store: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("within tx: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("within tx: commit: %w", err)
	}
	return nil
}

// Seed upserts the network and makes the seeded tariff the only active one.
func (s *PostgresStore) Seed(ctx context.Context, n NetworkSeed) error {
	if s.DB == nil {
		return errors.New("postgres store: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE tariffs SET active = FALSE WHERE active AND id <> $1;`, n.Tariff.ID); err != nil {
		return fmt.Errorf("seed: deactivate tariffs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO tariffs (id, fixed_management_fee, fuel_unit_price, active)
	VALUES ($1, $2, $3, TRUE)
	ON CONFLICT (id) DO UPDATE
	SET fixed_management_fee = EXCLUDED.fixed_management_fee,
		fuel_unit_price = EXCLUDED.fuel_unit_price,
		active = TRUE;
	`, n.Tariff.ID, n.Tariff.FixedManagementFee, n.Tariff.FuelUnitPrice); err != nil {
		return fmt.Errorf("seed: upsert tariff %s: %w", n.Tariff.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tariff_bands WHERE tariff_id = $1;`, n.Tariff.ID); err != nil {
		return fmt.Errorf("seed: clear bands: %w", err)
	}

	bandStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tariff_bands (tariff_id, position, volume_min, volume_max, weight_min, weight_max, cost_per_distance_unit)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare band insert: %w", err)
	}
	defer bandStmt.Close()

	for i, b := range n.Tariff.Bands {
		if _, err := bandStmt.ExecContext(ctx, n.Tariff.ID, i, b.VolumeMin, b.VolumeMax, b.WeightMin, b.WeightMax, b.CostPerDistanceUnit); err != nil {
			return fmt.Errorf("seed: insert band %d: %w", i, err)
		}
	}

	depositStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO deposits (id, name, lat, lon)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare deposit insert: %w", err)
	}
	defer depositStmt.Close()

	for _, d := range n.Deposits {
		if _, err := depositStmt.ExecContext(ctx, d.ID, d.Name, d.Location.Lat, d.Location.Lon); err != nil {
			return fmt.Errorf("seed: insert deposit %s: %w", d.ID, err)
		}
	}

	// Availability is runtime state owned by assignments and is left alone
	// for carriers that already exist.
	carrierStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO carriers (`+carrierColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE
	SET plate = EXCLUDED.plate,
		max_weight = EXCLUDED.max_weight,
		max_volume = EXCLUDED.max_volume,
		cost_base = EXCLUDED.cost_base,
		cost_per_distance_unit = EXCLUDED.cost_per_distance_unit,
		fuel_consumption_rate = EXCLUDED.fuel_consumption_rate;
	`)
	if err != nil {
		return fmt.Errorf("seed: prepare carrier insert: %w", err)
	}
	defer carrierStmt.Close()

	for _, c := range n.Carriers {
		if _, err := carrierStmt.ExecContext(ctx, c.ID, c.Plate, c.MaxWeight, c.MaxVolume, c.CostBase, c.CostPerDistanceUnit, c.FuelConsumptionRate, c.Available); err != nil {
			return fmt.Errorf("seed: insert carrier %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockAvailableCarriers(ctx context.Context, cargo domain.Cargo) ([]domain.Carrier, error) {
	rows, err := t.tx.QueryContext(ctx, `
	SELECT `+carrierColumns+`
	FROM carriers
	WHERE available
		AND max_weight >= $1
		AND max_volume >= $2
	ORDER BY id
	FOR UPDATE SKIP LOCKED;
	`, cargo.Weight, cargo.Volume)
	if err != nil {
		return nil, fmt.Errorf("lock carriers: query carriers table: %w", err)
	}
	defer rows.Close()

	carriers := make([]domain.Carrier, 0, 16)
	for rows.Next() {
		c, err := scanCarrier(rows)
		if err != nil {
			return nil, fmt.Errorf("lock carriers: scan row: %w", err)
		}
		carriers = append(carriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock carriers: row iteration: %w", err)
	}

	return carriers, nil
}

func (t *pgTx) SetCarrierAvailable(ctx context.Context, carrierID string, available bool) error {
	q := `UPDATE carriers SET available = TRUE WHERE id = $1;`
	if !available {
		q = `UPDATE carriers SET available = FALSE WHERE id = $1 AND available;`
	}

	res, err := t.tx.ExecContext(ctx, q, carrierID)
	if err != nil {
		return fmt.Errorf("set carrier %s available=%t: %w", carrierID, available, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set carrier %s available=%t: rows affected: %w", carrierID, available, err)
	}
	if n == 0 {
		if !available {
			return fmt.Errorf("%w: carrier %s taken concurrently", domain.ErrNoCarrierAvailable, carrierID)
		}
		return fmt.Errorf("carrier %s: %w", carrierID, domain.ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertRoute(ctx context.Context, r *domain.Route) error {
	_, err := t.tx.ExecContext(ctx, `
	INSERT INTO routes (id, shipment_id, selected_option_id, cargo_weight, cargo_volume, created_at)
	VALUES ($1, $2, $3, $4, $5, $6);
	`, r.ID, r.ShipmentID, r.SelectedOptionID, r.Cargo.Weight, r.Cargo.Volume, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("shipment %s: %w", r.ShipmentID, domain.ErrRouteExists)
		}
		return fmt.Errorf("insert route %s: %w", r.ID, err)
	}

	stmt, err := t.tx.PrepareContext(ctx, `
	INSERT INTO legs (`+legColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`)
	if err != nil {
		return fmt.Errorf("insert legs: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range r.Legs {
		if _, err := stmt.ExecContext(ctx, legArgs(&l)...); err != nil {
			return fmt.Errorf("insert leg %s: %w", l.ID, err)
		}
	}
	return nil
}

func (t *pgTx) LockRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	return loadRoute(ctx, t.tx, routeID, true)
}

func (t *pgTx) RouteIDForLeg(ctx context.Context, legID string) (string, error) {
	if err := checkRowID("leg", legID); err != nil {
		return "", err
	}

	var routeID string
	err := t.tx.QueryRowContext(ctx, `SELECT route_id FROM legs WHERE id = $1;`, legID).Scan(&routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("leg %s: %w", legID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("route for leg %s: %w", legID, err)
	}
	return routeID, nil
}

func (t *pgTx) UpdateLeg(ctx context.Context, l *domain.Leg) error {
	res, err := t.tx.ExecContext(ctx, `
	UPDATE legs
	SET state = $2,
		actual_start = $3,
		actual_end = $4,
		actual_cost = $5,
		actual_duration_minutes = $6
	WHERE id = $1;
	`, l.ID, string(l.State), nullTime(l.ActualStart), nullTime(l.ActualEnd), nullDecimal(l.ActualCost), nullDecimal(l.ActualDurationMinutes))
	if err != nil {
		return fmt.Errorf("update leg %s: %w", l.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("leg %s: %w", l.ID, domain.ErrNotFound)
	}
	return nil
}

// MarkRouteCompleted only sets completed_at once.
func (t *pgTx) MarkRouteCompleted(ctx context.Context, r *domain.Route) error {
	res, err := t.tx.ExecContext(ctx, `
	UPDATE routes SET completed_at = $2 WHERE id = $1 AND completed_at IS NULL;
	`, r.ID, nullTime(r.CompletedAt))
	if err != nil {
		return fmt.Errorf("complete route %s: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete route %s: already completed or missing", r.ID)
	}
	return nil
}

const legColumns = `id, route_id, leg_order,
	origin_lat, origin_lon, origin_deposit_id, origin_label,
	destination_lat, destination_lon, destination_deposit_id, destination_label,
	carrier_id, state, distance_km, scheduled_start, scheduled_end,
	actual_start, actual_end, estimated_cost, actual_cost, actual_duration_minutes`

func legArgs(l *domain.Leg) []any {
	return []any{
		l.ID, l.RouteID, l.Order,
		l.Origin.Point.Lat, l.Origin.Point.Lon, nullString(l.Origin.DepositID), l.Origin.Label,
		l.Destination.Point.Lat, l.Destination.Point.Lon, nullString(l.Destination.DepositID), l.Destination.Label,
		l.AssignedCarrierID, string(l.State), l.DistanceKm, l.ScheduledStart, l.ScheduledEnd,
		nullTime(l.ActualStart), nullTime(l.ActualEnd), l.EstimatedCost, nullDecimal(l.ActualCost), nullDecimal(l.ActualDurationMinutes),
	}
}

func scanLeg(r rowScanner) (domain.Leg, error) {
	var (
		l                     domain.Leg
		state                 string
		originDep, destDep    sql.NullString
		actualStart           sql.NullTime
		actualEnd             sql.NullTime
		actualCost, actualDur decimal.NullDecimal
	)

	err := r.Scan(
		&l.ID, &l.RouteID, &l.Order,
		&l.Origin.Point.Lat, &l.Origin.Point.Lon, &originDep, &l.Origin.Label,
		&l.Destination.Point.Lat, &l.Destination.Point.Lon, &destDep, &l.Destination.Label,
		&l.AssignedCarrierID, &state, &l.DistanceKm, &l.ScheduledStart, &l.ScheduledEnd,
		&actualStart, &actualEnd, &l.EstimatedCost, &actualCost, &actualDur,
	)
	if err != nil {
		return domain.Leg{}, err
	}

	l.State = domain.LegState(state)
	l.Origin.DepositID = originDep.String
	l.Destination.DepositID = destDep.String
	if actualStart.Valid {
		t := actualStart.Time
		l.ActualStart = &t
	}
	if actualEnd.Valid {
		t := actualEnd.Time
		l.ActualEnd = &t
	}
	if actualCost.Valid {
		d := actualCost.Decimal
		l.ActualCost = &d
	}
	if actualDur.Valid {
		d := actualDur.Decimal
		l.ActualDurationMinutes = &d
	}
	return l, nil
}

func loadRoute(ctx context.Context, q queryer, id string, lock bool) (*domain.Route, error) {
	if err := checkRowID("route", id); err != nil {
		return nil, err
	}

	query := `
	SELECT id, shipment_id, selected_option_id, cargo_weight, cargo_volume, created_at, completed_at
	FROM routes
	WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var (
		r         domain.Route
		completed sql.NullTime
	)
	err := q.QueryRowContext(ctx, query+`;`, id).Scan(
		&r.ID, &r.ShipmentID, &r.SelectedOptionID, &r.Cargo.Weight, &r.Cargo.Volume, &r.CreatedAt, &completed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load route %s: %w", id, err)
	}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}

	rows, err := q.QueryContext(ctx, `SELECT `+legColumns+` FROM legs WHERE route_id = $1 ORDER BY leg_order;`, id)
	if err != nil {
		return nil, fmt.Errorf("load route %s: query legs table: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanLeg(rows)
		if err != nil {
			return nil, fmt.Errorf("load route %s: scan leg: %w", id, err)
		}
		r.Legs = append(r.Legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load route %s: row iteration: %w", id, err)
	}

	return &r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}
