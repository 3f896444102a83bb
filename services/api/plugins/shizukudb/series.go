package shizukudb

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Measurement tables by quality.
const (
	CleanTable = "clean_measurements"
	RawTable   = "raw_measurements"
)

// SeriesQuery selects one pass over a measurement table. An empty Aggregate
// returns the stored points; otherwise points are bucketed per day with the
// named SQL aggregate.
type SeriesQuery struct {
	Table     string
	Aggregate string
	SensorIDs []string
	Since     *time.Time
	Until     *time.Time
}

var aggregates = map[string]bool{"avg": true, "min": true, "max": true, "sum": true}

// SeriesSQL builds the statement for q. Rows come back ordered by sensor then
// time, so each sensor's series is contiguous.
func SeriesSQL(q SeriesQuery) (string, []any) {
	var sql strings.Builder
	sql.WriteString("SELECT m.sensor_id, s.name, s.lat, s.lon, ")
	if q.Aggregate == "" {
		sql.WriteString("m.ts AS bucket, m.value_mm ")
	} else {
		sql.WriteString("date_trunc('day', m.ts) AS bucket, " + q.Aggregate + "(m.value_mm) ")
	}
	sql.WriteString("FROM shizuku." + q.Table + " m ")
	sql.WriteString("JOIN shizuku.sensors s ON s.id = m.sensor_id")

	args := []any{}
	conditions := []string{}
	if q.SensorIDs != nil {
		conditions = append(conditions, "m.sensor_id = ANY($"+strconv.Itoa(len(args)+1)+")")
		args = append(args, q.SensorIDs)
	}
	if q.Since != nil {
		conditions = append(conditions, "m.ts >= $"+strconv.Itoa(len(args)+1))
		args = append(args, *q.Since)
	}
	if q.Until != nil {
		conditions = append(conditions, "m.ts < $"+strconv.Itoa(len(args)+1))
		args = append(args, *q.Until)
	}
	if len(conditions) > 0 {
		sql.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	if q.Aggregate != "" {
		sql.WriteString(" GROUP BY m.sensor_id, s.name, s.lat, s.lon, bucket")
	}
	sql.WriteString(" ORDER BY m.sensor_id, bucket")
	return sql.String(), args
}

// Point is one scanned series row.
type Point struct {
	SensorID string
	Name     *string
	Lat      float64
	Lon      float64
	Bucket   time.Time
	Value    *float64
}

// SeriesReader groups a sensor-ordered cursor into per-sensor point runs.
type SeriesReader struct {
	rows    pgx.Rows
	pending *Point
	closed  bool
}

// OpenSeries runs q and returns a reader over its rows.
func (s *Store) OpenSeries(ctx context.Context, q SeriesQuery) (*SeriesReader, error) {
	sql, args := SeriesSQL(q)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &SeriesReader{rows: rows}, nil
}

// Read returns the next sensor's points, or nil once the cursor is exhausted.
func (r *SeriesReader) Read() ([]Point, error) {
	if r.closed {
		return nil, nil
	}
	if r.pending == nil {
		p, ok, err := r.scan()
		if err != nil || !ok {
			return nil, err
		}
		r.pending = &p
	}

	run := []Point{*r.pending}
	r.pending = nil
	for {
		p, ok, err := r.scan()
		if err != nil {
			return nil, err
		}
		if !ok {
			return run, nil
		}
		if p.SensorID != run[0].SensorID {
			r.pending = &p
			return run, nil
		}
		run = append(run, p)
	}
}

func (r *SeriesReader) scan() (Point, bool, error) {
	if !r.rows.Next() {
		err := r.rows.Err()
		r.Close()
		return Point{}, false, err
	}
	var p Point
	if err := r.rows.Scan(&p.SensorID, &p.Name, &p.Lat, &p.Lon, &p.Bucket, &p.Value); err != nil {
		r.Close()
		return Point{}, false, err
	}
	return p, true, nil
}

// Close releases the cursor.
func (r *SeriesReader) Close() {
	if !r.closed {
		r.closed = true
		r.rows.Close()
	}
}
