// Package influx serves gauge telemetry stored in InfluxDB as synthesis
// timeseries. It offers no monitoring feature view.
package influx

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"time"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/mapping"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

//go:embed mappings.yaml
var mappingsYAML []byte

const (
	DataSourceID = "INFLUX"
	IDPrefix     = "INFLUX"

	defaultAggregate = "mean"
	storedQuality    = "raw"
)

var aggregates = map[string]bool{"mean": true, "min": true, "max": true, "sum": true}

// Settings locate the series in InfluxDB.
type Settings struct {
	URL         string
	Token       string
	Bucket      string
	Measurement string
}

// Source adapts a Runner to the synthesis plugin contract.
type Source struct {
	runner   Runner
	settings Settings
	mappings *mapping.Table
}

// New returns a plugin source.
func New(runner Runner, settings Settings) *Source {
	return &Source{runner: runner, settings: settings, mappings: mapping.MustParse(mappingsYAML)}
}

// Plugin describes the source's capabilities.
func (s *Source) Plugin() *synthesis.Plugin {
	return &synthesis.Plugin{
		DataSource: synthesis.DataSource{
			ID:       DataSourceID,
			Name:     "InfluxDB gauge telemetry",
			IDPrefix: IDPrefix,
			Location: s.settings.URL,
		},
		Views: map[synthesis.EntityType]synthesis.View{
			synthesis.EntityMeasurementTimeseriesTVPObservation: {
				List: s.listTimeseries,
			},
		},
		Mapper: s.mappings,
	}
}

// plan expands a plugin-scoped query into one Flux query per aggregate.
func (s *Source) plan(tq *synthesis.QueryMeasurementTimeseriesTVP) []FluxQuery {
	if tq.ObservedPropertyVariables != nil && len(tq.ObservedPropertyVariables) == 0 {
		return nil
	}
	if tq.MonitoringFeatures != nil && len(tq.MonitoringFeatures) == 0 {
		return nil
	}
	if tq.ResultQuality != nil &&
		!slices.Contains(tq.ResultQuality, synthesis.QualityUnchecked) &&
		!slices.Contains(tq.ResultQuality, synthesis.ResultQuality(storedQuality)) {
		return nil
	}

	aggs := []string{""}
	if tq.AggregationDuration != synthesis.FrequencyNone {
		aggs = aggs[:0]
		if tq.Statistic == nil {
			aggs = append(aggs, defaultAggregate)
		}
		for _, st := range tq.Statistic {
			if fn := string(st); aggregates[fn] && !slices.Contains(aggs, fn) {
				aggs = append(aggs, fn)
			}
		}
	}

	var stop *time.Time
	if tq.EndDate != nil {
		end := tq.EndDate.AddDate(0, 0, 1)
		stop = &end
	}

	out := make([]FluxQuery, 0, len(aggs))
	for _, agg := range aggs {
		out = append(out, FluxQuery{
			Bucket:      s.settings.Bucket,
			Measurement: s.settings.Measurement,
			Stations:    tq.MonitoringFeatures,
			Fields:      tq.ObservedPropertyVariables,
			Aggregate:   agg,
			Start:       tq.StartDate,
			Stop:        stop,
		})
	}
	return out
}

func (s *Source) listTimeseries(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
	tq, ok := q.(*synthesis.QueryMeasurementTimeseriesTVP)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}
	if s.settings.Token == "" {
		return nil, fmt.Errorf("influxdb token not configured: %w", synthesis.ErrInvalidCredentials)
	}
	return &seriesSequence{src: s, passes: s.plan(tq), aggregation: tq.AggregationDuration}, nil
}

type seriesKey struct {
	station string
	field   string
}

// seriesSequence runs its Flux queries in order and emits one observation per
// station and field.
type seriesSequence struct {
	src         *Source
	passes      []FluxQuery
	records     Records
	pending     *synthesis.TimeValuePair
	pendingKey  seriesKey
	aggregation synthesis.TimeFrequency
}

func (ss *seriesSequence) Next(ctx context.Context) (synthesis.Result, error) {
	for {
		if ss.records == nil {
			if len(ss.passes) == 0 {
				return synthesis.End(), nil
			}
			records, err := ss.src.runner.Query(ctx, Flux(ss.passes[0]))
			if err != nil {
				return synthesis.Result{}, err
			}
			ss.records = records
		}

		key, points, err := ss.read()
		if err != nil {
			return synthesis.Result{}, err
		}
		if points == nil {
			ss.closeRecords()
			ss.passes = ss.passes[1:]
			continue
		}
		return synthesis.Value(ss.src.observation(ss.passes[0].Aggregate, ss.aggregation, key, points)), nil
	}
}

// read collects the next contiguous run of records sharing a series key.
func (ss *seriesSequence) read() (seriesKey, []synthesis.TimeValuePair, error) {
	var key seriesKey
	var points []synthesis.TimeValuePair
	if ss.pending != nil {
		key, points = ss.pendingKey, []synthesis.TimeValuePair{*ss.pending}
		ss.pending = nil
	}

	for ss.records.Next() {
		rec := ss.records.Record()
		k := seriesKey{station: fmt.Sprint(rec.ValueByKey(StationTag)), field: rec.Field()}
		point := synthesis.TimeValuePair{Timestamp: rec.Time().UTC(), Value: floatValue(rec.Value())}
		if points == nil {
			key, points = k, []synthesis.TimeValuePair{point}
			continue
		}
		if k != key {
			ss.pending, ss.pendingKey = &point, k
			return key, points, nil
		}
		points = append(points, point)
	}
	if err := ss.records.Err(); err != nil {
		return key, nil, classify(err)
	}
	return key, points, nil
}

func (ss *seriesSequence) closeRecords() {
	if ss.records != nil {
		_ = ss.records.Close()
		ss.records = nil
	}
}

func (ss *seriesSequence) Close() {
	ss.closeRecords()
}

func floatValue(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return nil
	}
	return &f
}

func (s *Source) observation(aggregate string, aggregation synthesis.TimeFrequency, key seriesKey, points []synthesis.TimeValuePair) *synthesis.MeasurementTimeseriesTVPObservation {
	statistic := synthesis.StatisticInstant
	id := key.station + "_" + key.field
	if aggregate != "" {
		if broker, ok := s.mappings.BrokerAttribute(synthesis.AttributeStatistic, aggregate); ok {
			statistic = synthesis.Statistic(broker)
		}
		id += "_day_" + aggregate
	}

	variable, ok := s.mappings.BrokerVariable(key.field)
	if !ok {
		variable = key.field
	}
	phenomenon := points[0].Timestamp

	return &synthesis.MeasurementTimeseriesTVPObservation{
		ID:                       id,
		ObservedPropertyVariable: variable,
		FeatureOfInterest: &synthesis.MonitoringFeature{
			ID:          key.station,
			Name:        key.station,
			FeatureType: synthesis.FeaturePoint,
			Shape:       synthesis.ShapePoint,
		},
		FeatureOfInterestType: synthesis.FeaturePoint,
		PhenomenonTime:        &phenomenon,
		ResultPoints:          points,
		AggregationDuration:   aggregation,
		UnitOfMeasurement:     s.mappings.Unit(key.field),
		Statistic:             statistic,
		ResultQuality:         synthesis.QualityUnchecked,
		DataSource:            DataSourceID,
	}
}
