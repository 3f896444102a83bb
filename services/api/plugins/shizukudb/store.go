package shizukudb

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of *pgxpool.Pool the plugin uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store wraps database access helpers.
type Store struct {
	db   Querier
	pool *pgxpool.Pool
}

// Connect creates a Store backed by a pgx pool.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{db: pool, pool: pool}, nil
}

// NewStore wraps an existing querier.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Sensor represents a sensor metadata record.
type Sensor struct {
	ID         string
	Name       *string
	ProviderID *string
	Lat        float64
	Lon        float64
	City       *string
	Subbasin   *string
	Barrio     *string
}

const listSensorsSQL = `
    SELECT id, name, provider_id, lat, lon, city, subbasin, barrio
    FROM shizuku.sensors
`

const listSubbasinsSQL = `
    SELECT DISTINCT subbasin
    FROM shizuku.sensors
    WHERE subbasin IS NOT NULL AND subbasin <> ''
    ORDER BY subbasin
`

// QuerySensors opens a cursor over sensors, optionally restricted to ids.
func (s *Store) QuerySensors(ctx context.Context, ids []string) (pgx.Rows, error) {
	if ids == nil {
		return s.db.Query(ctx, listSensorsSQL+"    ORDER BY id")
	}
	return s.db.Query(ctx, listSensorsSQL+"    WHERE id = ANY($1)\n    ORDER BY id", ids)
}

// ScanSensor reads the current row of a QuerySensors cursor.
func ScanSensor(rows pgx.Rows) (Sensor, error) {
	var sensor Sensor
	err := rows.Scan(
		&sensor.ID,
		&sensor.Name,
		&sensor.ProviderID,
		&sensor.Lat,
		&sensor.Lon,
		&sensor.City,
		&sensor.Subbasin,
		&sensor.Barrio,
	)
	return sensor, err
}

// GetSensor returns one sensor, or nil when the id is unknown.
func (s *Store) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	rows, err := s.QuerySensors(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	sensor, err := ScanSensor(rows)
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

// ListSubbasins returns the distinct subbasin names sensors belong to.
func (s *Store) ListSubbasins(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, listSubbasinsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, strings.TrimSpace(name))
	}
	return names, rows.Err()
}
