package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

const tripColumns = `
	id, driver, unit, driver_id, unit_id, order_id, miles,
	revenue, expected_revenue,
	fixed_cpm, wage_cpm, rolling_cpm, add_ons_cpm,
	total_variable_cpm, total_cpm, variable_cost, fixed_cost, total_cost, profit, margin,
	border_crossings, pickups, deliveries, drop_hooks,
	status, last_check_in, eta, next_commitment, started_at, ended_at, delay_risk,
	rate_template_id
`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	`

	_, err := r.q.ExecContext(ctx, query, tripArgs(trip)...)
	return err
}

// GetByID retrieves a trip by ID, without its stops.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetWithStops retrieves a trip with its stops ordered by sequence.
func (r *TripRepository) GetWithStops(ctx context.Context, id string) (*domain.Trip, error) {
	trip, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, trip_id, seq, name, scheduled_at
		FROM stops WHERE trip_id = $1 ORDER BY seq ASC
	`

	rows, err := r.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stop domain.Stop
		var scheduledAt sql.NullTime

		if err := rows.Scan(&stop.ID, &stop.TripID, &stop.Seq, &stop.Name, &scheduledAt); err != nil {
			return nil, err
		}
		stop.ScheduledAt = timePtr(scheduledAt)
		trip.Stops = append(trip.Stops, stop)
	}

	return trip, rows.Err()
}

// Update persists the mutable costing and status fields of a trip.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips SET
			driver = $2, unit = $3, driver_id = $4, unit_id = $5, order_id = $6, miles = $7,
			revenue = $8, expected_revenue = $9,
			fixed_cpm = $10, wage_cpm = $11, rolling_cpm = $12, add_ons_cpm = $13,
			total_variable_cpm = $14, total_cpm = $15, variable_cost = $16, fixed_cost = $17,
			total_cost = $18, profit = $19, margin = $20,
			border_crossings = $21, pickups = $22, deliveries = $23, drop_hooks = $24,
			status = $25, last_check_in = $26, eta = $27, next_commitment = $28,
			started_at = $29, ended_at = $30, delay_risk = $31,
			rate_template_id = $32
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, tripArgs(trip)...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// tripArgs returns the bind arguments matching tripColumns order.
func tripArgs(trip *domain.Trip) []any {
	return []any{
		trip.ID,
		trip.Driver,
		trip.Unit,
		nullString(trip.DriverID),
		nullString(trip.UnitID),
		nullString(trip.OrderID),
		trip.Miles,
		nullFloat(trip.Revenue),
		nullFloat(trip.ExpectedRevenue),
		nullFloat(trip.FixedCPM),
		nullFloat(trip.WageCPM),
		nullFloat(trip.RollingCPM),
		nullFloat(trip.AddOnsCPM),
		nullFloat(trip.TotalVariableCPM),
		nullFloat(trip.TotalCPM),
		nullFloat(trip.VariableCost),
		nullFloat(trip.FixedCost),
		nullFloat(trip.TotalCost),
		nullFloat(trip.Profit),
		nullFloat(trip.Margin),
		trip.BorderCrossings,
		trip.Pickups,
		trip.Deliveries,
		trip.DropHooks,
		string(trip.Status),
		nullTime(trip.LastCheckIn),
		nullTime(trip.ETA),
		nullTime(trip.NextCommitment),
		nullTime(trip.StartedAt),
		nullTime(trip.EndedAt),
		trip.DelayRisk,
		nullString(trip.RateTemplateID),
	}
}

// scanTrip scans one trips row in tripColumns order.
func scanTrip(row *sql.Row) (*domain.Trip, error) {
	var trip domain.Trip
	var driverID, unitID, orderID, rateTemplateID sql.NullString
	var revenue, expectedRevenue sql.NullFloat64
	var fixedCPM, wageCPM, rollingCPM, addOnsCPM sql.NullFloat64
	var totalVariableCPM, totalCPM, variableCost, fixedCost, totalCost, profit, margin sql.NullFloat64
	var status string
	var lastCheckIn, eta, nextCommitment, startedAt, endedAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.Driver,
		&trip.Unit,
		&driverID,
		&unitID,
		&orderID,
		&trip.Miles,
		&revenue,
		&expectedRevenue,
		&fixedCPM,
		&wageCPM,
		&rollingCPM,
		&addOnsCPM,
		&totalVariableCPM,
		&totalCPM,
		&variableCost,
		&fixedCost,
		&totalCost,
		&profit,
		&margin,
		&trip.BorderCrossings,
		&trip.Pickups,
		&trip.Deliveries,
		&trip.DropHooks,
		&status,
		&lastCheckIn,
		&eta,
		&nextCommitment,
		&startedAt,
		&endedAt,
		&trip.DelayRisk,
		&rateTemplateID,
	)
	if err != nil {
		return nil, err
	}

	trip.DriverID = stringPtr(driverID)
	trip.UnitID = stringPtr(unitID)
	trip.OrderID = stringPtr(orderID)
	trip.Revenue = floatPtr(revenue)
	trip.ExpectedRevenue = floatPtr(expectedRevenue)
	trip.FixedCPM = floatPtr(fixedCPM)
	trip.WageCPM = floatPtr(wageCPM)
	trip.RollingCPM = floatPtr(rollingCPM)
	trip.AddOnsCPM = floatPtr(addOnsCPM)
	trip.TotalVariableCPM = floatPtr(totalVariableCPM)
	trip.TotalCPM = floatPtr(totalCPM)
	trip.VariableCost = floatPtr(variableCost)
	trip.FixedCost = floatPtr(fixedCost)
	trip.TotalCost = floatPtr(totalCost)
	trip.Profit = floatPtr(profit)
	trip.Margin = floatPtr(margin)
	trip.Status = domain.TripStatus(status)
	trip.LastCheckIn = timePtr(lastCheckIn)
	trip.ETA = timePtr(eta)
	trip.NextCommitment = timePtr(nextCommitment)
	trip.StartedAt = timePtr(startedAt)
	trip.EndedAt = timePtr(endedAt)
	trip.RateTemplateID = stringPtr(rateTemplateID)

	return &trip, nil
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
