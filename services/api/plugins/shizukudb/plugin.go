// Package shizukudb serves the Shizuku PostgreSQL sensor network as a
// synthesis plugin: sensors become monitoring features and the clean and raw
// measurement tables become timeseries.
package shizukudb

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/mapping"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

//go:embed mappings.yaml
var mappingsYAML []byte

const (
	DataSourceID = "SHIZUKU"
	IDPrefix     = "SHZ"

	valueColumn      = "value_mm"
	defaultAggregate = "avg"
	subbasinPrefix   = "subbasin_"
)

// Source adapts a Store to the synthesis plugin contract.
type Source struct {
	store    *Store
	mappings *mapping.Table
	location string
}

// New returns a plugin source over store. location is reported in the datasource description.
func New(store *Store, location string) *Source {
	return &Source{store: store, mappings: mapping.MustParse(mappingsYAML), location: location}
}

// Plugin describes the database's capabilities.
func (s *Source) Plugin() *synthesis.Plugin {
	return &synthesis.Plugin{
		DataSource: synthesis.DataSource{
			ID:       DataSourceID,
			Name:     "Shizuku precipitation database",
			IDPrefix: IDPrefix,
			Location: s.location,
		},
		Views: map[synthesis.EntityType]synthesis.View{
			synthesis.EntityMonitoringFeature: {
				List: s.listMonitoringFeatures,
				Get:  s.getMonitoringFeature,
			},
			synthesis.EntityMeasurementTimeseriesTVPObservation: {
				List: s.listTimeseries,
			},
		},
		Mapper: s.mappings,
	}
}

// SubbasinID is the local id of a subbasin region.
func SubbasinID(name string) string {
	return subbasinPrefix + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func subbasinFeature(name string) *synthesis.MonitoringFeature {
	return &synthesis.MonitoringFeature{
		ID:          SubbasinID(name),
		Name:        name,
		FeatureType: synthesis.FeatureSubbasin,
		Shape:       synthesis.ShapeSurface,
		DataSource:  DataSourceID,
	}
}

// SensorFeature converts a sensor record into a POINT monitoring feature.
func SensorFeature(sensor Sensor) *synthesis.MonitoringFeature {
	f := &synthesis.MonitoringFeature{
		ID:                        sensor.ID,
		Name:                      sensorName(sensor.ID, sensor.Name, sensor.ProviderID),
		FeatureType:               synthesis.FeaturePoint,
		Shape:                     synthesis.ShapePoint,
		Coordinates:               synthesis.PointCoordinate(sensor.Lat, sensor.Lon),
		ObservedPropertyVariables: []string{"PRECIP"},
		DataSource:                DataSourceID,
	}

	parts := make([]string, 0, 2)
	for _, p := range []*string{sensor.Barrio, sensor.City} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	f.Description = strings.Join(parts, ", ")

	if sensor.Subbasin != nil && strings.TrimSpace(*sensor.Subbasin) != "" {
		f.RelatedSamplingFeatureComplex = []synthesis.RelatedSamplingFeature{{
			RelatedSamplingFeature:     SubbasinID(*sensor.Subbasin),
			RelatedSamplingFeatureType: synthesis.FeatureSubbasin,
			Role:                       synthesis.RoleParent,
		}}
	}
	return f
}

func sensorName(id string, name, providerID *string) string {
	switch {
	case name != nil && *name != "":
		return *name
	case providerID != nil && *providerID != "":
		return *providerID
	default:
		return id
	}
}

func hasParent(f *synthesis.MonitoringFeature, parents []string) bool {
	for _, rel := range f.RelatedSamplingFeatureComplex {
		if rel.Role == synthesis.RoleParent && synthesis.Matches(parents, rel.RelatedSamplingFeature) {
			return true
		}
	}
	return false
}

// featureSequence emits subbasin regions, then streams sensors from a cursor.
type featureSequence struct {
	store   *Store
	query   *synthesis.QueryMonitoringFeature
	regions []*synthesis.MonitoringFeature
	sensors pgx.Rows

	wantRegions bool
	wantSensors bool
	loaded      bool
}

func (fs *featureSequence) Next(ctx context.Context) (synthesis.Result, error) {
	if fs.wantRegions && !fs.loaded {
		names, err := fs.store.ListSubbasins(ctx)
		if err != nil {
			return synthesis.Result{}, err
		}
		for _, name := range names {
			if f := subbasinFeature(name); synthesis.Matches(fs.query.MonitoringFeatures, f.ID) {
				fs.regions = append(fs.regions, f)
			}
		}
		fs.loaded = true
	}
	if len(fs.regions) > 0 {
		f := fs.regions[0]
		fs.regions = fs.regions[1:]
		return synthesis.Value(f), nil
	}

	if !fs.wantSensors {
		return synthesis.End(), nil
	}
	if fs.sensors == nil {
		rows, err := fs.store.QuerySensors(ctx, fs.query.MonitoringFeatures)
		if err != nil {
			return synthesis.Result{}, err
		}
		fs.sensors = rows
	}
	for fs.sensors.Next() {
		sensor, err := ScanSensor(fs.sensors)
		if err != nil {
			return synthesis.Result{}, err
		}
		f := SensorFeature(sensor)
		if fs.query.ParentFeatures != nil && !hasParent(f, fs.query.ParentFeatures) {
			continue
		}
		return synthesis.Value(f), nil
	}
	if err := fs.sensors.Err(); err != nil {
		return synthesis.Result{}, err
	}
	fs.wantSensors = false
	return synthesis.End(), nil
}

func (fs *featureSequence) Close() {
	if fs.sensors != nil {
		fs.sensors.Close()
	}
}

func (s *Source) listMonitoringFeatures(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
	mq, ok := q.(*synthesis.QueryMonitoringFeature)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}
	if mq.MonitoringFeatures != nil && len(mq.MonitoringFeatures) == 0 {
		return synthesis.SliceSequence(nil), nil
	}

	fs := &featureSequence{store: s.store, query: mq}
	switch mq.FeatureType {
	case "":
		fs.wantRegions = mq.ParentFeatures == nil
		fs.wantSensors = true
	case synthesis.FeatureSubbasin:
		fs.wantRegions = mq.ParentFeatures == nil
	case synthesis.FeaturePoint:
		fs.wantSensors = true
	}
	return fs, nil
}

func (s *Source) getMonitoringFeature(ctx context.Context, q *synthesis.QueryByID) (synthesis.Object, error) {
	if strings.HasPrefix(q.ID, subbasinPrefix) {
		names, err := s.store.ListSubbasins(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if SubbasinID(name) == q.ID {
				return subbasinFeature(name), nil
			}
		}
		return nil, nil
	}

	sensor, err := s.store.GetSensor(ctx, q.ID)
	if err != nil {
		return nil, fmt.Errorf("get sensor %s: %w", q.ID, err)
	}
	if sensor == nil {
		return nil, nil
	}
	return SensorFeature(*sensor), nil
}

// pass is one table and aggregate combination of a timeseries request.
type pass struct {
	query   SeriesQuery
	quality synthesis.ResultQuality
}

// seriesSequence runs its passes in order and emits one observation per sensor run.
type seriesSequence struct {
	src         *Source
	passes      []pass
	reader      *SeriesReader
	aggregation synthesis.TimeFrequency
}

func (ss *seriesSequence) Next(ctx context.Context) (synthesis.Result, error) {
	for {
		if ss.reader == nil {
			if len(ss.passes) == 0 {
				return synthesis.End(), nil
			}
			reader, err := ss.src.store.OpenSeries(ctx, ss.passes[0].query)
			if err != nil {
				return synthesis.Result{}, fmt.Errorf("query %s: %w", ss.passes[0].query.Table, err)
			}
			ss.reader = reader
		}

		run, err := ss.reader.Read()
		if err != nil {
			return synthesis.Result{}, err
		}
		if run == nil {
			ss.reader = nil
			ss.passes = ss.passes[1:]
			continue
		}
		return synthesis.Value(ss.src.observation(ss.passes[0], ss.aggregation, run)), nil
	}
}

func (ss *seriesSequence) Close() {
	if ss.reader != nil {
		ss.reader.Close()
	}
}

func (s *Source) observation(p pass, aggregation synthesis.TimeFrequency, run []Point) *synthesis.MeasurementTimeseriesTVPObservation {
	first := run[0]
	statistic := synthesis.StatisticInstant
	if p.query.Aggregate != "" {
		if broker, ok := s.mappings.BrokerAttribute(synthesis.AttributeStatistic, p.query.Aggregate); ok {
			statistic = synthesis.Statistic(broker)
		}
	}

	points := make([]synthesis.TimeValuePair, 0, len(run))
	for _, pt := range run {
		points = append(points, synthesis.TimeValuePair{Timestamp: pt.Bucket.UTC(), Value: pt.Value})
	}
	phenomenon := first.Bucket.UTC()

	id := first.SensorID + "_" + p.query.Table
	if p.query.Aggregate != "" {
		id += "_day_" + p.query.Aggregate
	}

	return &synthesis.MeasurementTimeseriesTVPObservation{
		ID:                       id,
		ObservedPropertyVariable: "PRECIP",
		FeatureOfInterest: &synthesis.MonitoringFeature{
			ID:          first.SensorID,
			Name:        sensorName(first.SensorID, first.Name, nil),
			FeatureType: synthesis.FeaturePoint,
			Shape:       synthesis.ShapePoint,
			Coordinates: synthesis.PointCoordinate(first.Lat, first.Lon),
		},
		FeatureOfInterestType: synthesis.FeaturePoint,
		PhenomenonTime:        &phenomenon,
		ResultPoints:          points,
		AggregationDuration:   aggregation,
		UnitOfMeasurement:     s.mappings.Unit(valueColumn),
		Statistic:             statistic,
		ResultQuality:         p.quality,
		DataSource:            DataSourceID,
	}
}

// table resolves a result quality, given either as a broker value or as this
// datasource's attribute id, to its measurement table.
func (s *Source) table(rq synthesis.ResultQuality) (string, synthesis.ResultQuality, bool) {
	id := string(rq)
	broker, ok := s.mappings.BrokerAttribute(synthesis.AttributeResultQuality, id)
	if !ok {
		attrs, _ := s.mappings.MappedAttributes(context.Background(), synthesis.AttributeResultQuality, []string{id}, true)
		if len(attrs) == 0 {
			return "", "", false
		}
		id, broker = attrs[0].DatasourceAttrID, attrs[0].BrokerValue
	}
	switch id {
	case "clean":
		return CleanTable, synthesis.ResultQuality(broker), true
	case "raw":
		return RawTable, synthesis.ResultQuality(broker), true
	}
	return "", "", false
}

// plan lists the table and aggregate combinations for a plugin-scoped query.
func (s *Source) plan(tq *synthesis.QueryMeasurementTimeseriesTVP) []pass {
	if !synthesis.Matches(tq.ObservedPropertyVariables, valueColumn) {
		return nil
	}
	if tq.MonitoringFeatures != nil && len(tq.MonitoringFeatures) == 0 {
		return nil
	}

	qualities := tq.ResultQuality
	if qualities == nil {
		qualities = []synthesis.ResultQuality{synthesis.QualityChecked}
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

	var until *time.Time
	if tq.EndDate != nil {
		end := tq.EndDate.AddDate(0, 0, 1)
		until = &end
	}

	passes := make([]pass, 0)
	seen := make(map[string]bool)
	for _, rq := range qualities {
		table, broker, ok := s.table(rq)
		if !ok || seen[table] {
			continue
		}
		seen[table] = true
		for _, agg := range aggs {
			passes = append(passes, pass{
				query: SeriesQuery{
					Table:     table,
					Aggregate: agg,
					SensorIDs: tq.MonitoringFeatures,
					Since:     tq.StartDate,
					Until:     until,
				},
				quality: broker,
			})
		}
	}
	return passes
}

func (s *Source) listTimeseries(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
	tq, ok := q.(*synthesis.QueryMeasurementTimeseriesTVP)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}
	return &seriesSequence{src: s, passes: s.plan(tq), aggregation: tq.AggregationDuration}, nil
}
