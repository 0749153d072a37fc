package db

import (
	"context"
	"time"

	"soilcast/internal/types"
)

// ReadingsRepo provides data access for the raw_sensor_readings table. It is
// the primary types.SensorSource implementation: readings come back oldest
// first so callers can window the tail directly.
type ReadingsRepo struct {
	db DBTX
}

// NewReadingsRepo creates a ReadingsRepo backed by the given database
// connection (pool or transaction).
func NewReadingsRepo(db DBTX) *ReadingsRepo {
	return &ReadingsRepo{db: db}
}

// Name identifies the source in combined reports.
func (r *ReadingsRepo) Name() string {
	return "postgres"
}

// FetchReadings returns the most recent limit rows in ascending datetime
// order. The inner query takes the newest rows; the outer query restores
// chronological order.
func (r *ReadingsRepo) FetchReadings(ctx context.Context, limit int) ([]types.SensorReading, error) {
	const query = `
		SELECT id, datetime, nitrogen, phosphorus, potassium, ph, temperature, humidity
		FROM (
			SELECT id, datetime, nitrogen, phosphorus, potassium, ph, temperature, humidity
			FROM raw_sensor_readings
			ORDER BY datetime DESC
			LIMIT $1
		) recent
		ORDER BY datetime ASC`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query sensor readings", err)
	}
	defer rows.Close()

	var results []types.SensorReading
	for rows.Next() {
		var reading types.SensorReading
		if err := rows.Scan(
			&reading.ID,
			&reading.Timestamp,
			&reading.Nitrogen,
			&reading.Phosphorus,
			&reading.Potassium,
			&reading.PH,
			&reading.Temperature,
			&reading.Humidity,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan sensor reading row", err)
		}
		results = append(results, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating sensor reading rows", err)
	}

	return results, nil
}

// CountReadings returns the total row count of the store. Used by the
// data-info endpoint to report store depth alongside the sampled statistics.
func (r *ReadingsRepo) CountReadings(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM raw_sensor_readings`).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count sensor readings", err)
	}
	return count, nil
}

// InsertReading appends one row. Only exercised by ingest tooling; the API
// itself never writes.
func (r *ReadingsRepo) InsertReading(ctx context.Context, reading types.SensorReading) error {
	const query = `
		INSERT INTO raw_sensor_readings
			(datetime, nitrogen, phosphorus, potassium, ph, temperature, humidity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ts := reading.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, query,
		ts,
		reading.Nitrogen,
		reading.Phosphorus,
		reading.Potassium,
		reading.PH,
		reading.Temperature,
		reading.Humidity,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert sensor reading", err)
	}
	return nil
}
