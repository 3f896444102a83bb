// Package siata exposes the SIATA pluviometric current feed as a synthesis plugin.
package siata

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/mapping"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

//go:embed mappings.yaml
var mappingsYAML []byte

const (
	DefaultCurrentURL = "https://siata.gov.co/data/siata_app/Pluviometrica.json"

	DataSourceID = "SIATA"
	IDPrefix     = "SIATA"

	feedVariable = "precipitacion"
	feedStat     = "current"
	feedQuality  = "raw"
)

// Source reads the current station feed on demand.
type Source struct {
	client   *http.Client
	url      string
	mappings *mapping.Table
	now      func() time.Time
}

// New returns a feed source. An empty url selects DefaultCurrentURL.
func New(client *http.Client, url string) *Source {
	if url == "" {
		url = DefaultCurrentURL
	}
	return &Source{
		client:   client,
		url:      url,
		mappings: mapping.MustParse(mappingsYAML),
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Plugin describes the feed's capabilities. Timeseries have no detail lookup.
func (s *Source) Plugin() *synthesis.Plugin {
	return &synthesis.Plugin{
		DataSource: synthesis.DataSource{
			ID:       DataSourceID,
			Name:     "SIATA pluviometric network",
			IDPrefix: IDPrefix,
			Location: s.url,
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

// StationID is the local id of a station feature.
func StationID(code int) string { return fmt.Sprintf("pluvio_%d", code) }

// SubbasinID is the local id of a subbasin region.
func SubbasinID(name string) string {
	return "subbasin_" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// BuildFeatures converts feed stations into monitoring features: one SUBBASIN
// region per distinct subbasin, followed by the stations.
func BuildFeatures(stations []Station) []*synthesis.MonitoringFeature {
	regions := make([]*synthesis.MonitoringFeature, 0)
	seen := make(map[string]bool)
	points := make([]*synthesis.MonitoringFeature, 0, len(stations))

	for _, st := range stations {
		f := &synthesis.MonitoringFeature{
			ID:                        StationID(st.Code),
			Name:                      st.Name,
			Description:               strings.TrimSpace(strings.Join([]string{st.Barrio, st.Comuna, st.City}, " ")),
			FeatureType:               synthesis.FeaturePoint,
			Shape:                     synthesis.ShapePoint,
			Coordinates:               synthesis.PointCoordinate(st.Latitude, st.Longitude),
			ObservedPropertyVariables: []string{"PRECIP"},
			DataSource:                DataSourceID,
		}
		if st.Subbasin != "" {
			parent := SubbasinID(st.Subbasin)
			f.RelatedSamplingFeatureComplex = []synthesis.RelatedSamplingFeature{{
				RelatedSamplingFeature:     parent,
				RelatedSamplingFeatureType: synthesis.FeatureSubbasin,
				Role:                       synthesis.RoleParent,
			}}
			if !seen[parent] {
				seen[parent] = true
				regions = append(regions, &synthesis.MonitoringFeature{
					ID:          parent,
					Name:        st.Subbasin,
					FeatureType: synthesis.FeatureSubbasin,
					Shape:       synthesis.ShapeSurface,
					DataSource:  DataSourceID,
				})
			}
		}
		points = append(points, f)
	}
	return append(regions, points...)
}

func matchFeature(q *synthesis.QueryMonitoringFeature, f *synthesis.MonitoringFeature) bool {
	if !synthesis.Matches(q.MonitoringFeatures, f.ID) {
		return false
	}
	if q.FeatureType != "" && q.FeatureType != f.FeatureType {
		return false
	}
	if q.ParentFeatures != nil {
		for _, rel := range f.RelatedSamplingFeatureComplex {
			if rel.Role == synthesis.RoleParent && synthesis.Matches(q.ParentFeatures, rel.RelatedSamplingFeature) {
				return true
			}
		}
		return false
	}
	return true
}

// feed defers the feed request until the first pull.
type feed struct {
	src     *Source
	loaded  bool
	payload CurrentResponse
}

func (f *feed) load(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	payload, err := FetchCurrentStations(ctx, f.src.client, f.src.url)
	if err != nil {
		return err
	}
	f.payload = payload
	f.loaded = true
	return nil
}

func (s *Source) listMonitoringFeatures(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
	mq, ok := q.(*synthesis.QueryMonitoringFeature)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}

	fd := &feed{src: s}
	var features []*synthesis.MonitoringFeature
	i := 0
	return synthesis.SequenceFunc(func(ctx context.Context) (synthesis.Result, error) {
		if !fd.loaded {
			if err := fd.load(ctx); err != nil {
				return synthesis.Result{}, err
			}
			features = BuildFeatures(fd.payload.Stations)
		}
		for i < len(features) {
			f := features[i]
			i++
			if matchFeature(mq, f) {
				return synthesis.Value(f), nil
			}
		}
		return synthesis.End(), nil
	}), nil
}

func (s *Source) getMonitoringFeature(ctx context.Context, q *synthesis.QueryByID) (synthesis.Object, error) {
	payload, err := FetchCurrentStations(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	for _, f := range BuildFeatures(payload.Stations) {
		if f.ID == q.ID {
			return f, nil
		}
	}
	return nil, nil
}

func (s *Source) listTimeseries(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
	tq, ok := q.(*synthesis.QueryMeasurementTimeseriesTVP)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", q)
	}

	retrieval := s.now()
	var diagnostics []string
	if tq.AggregationDuration != synthesis.FrequencyNone {
		diagnostics = append(diagnostics,
			fmt.Sprintf("SIATA current feed reports instantaneous values; %s aggregation was not applied", tq.AggregationDuration))
	}

	if !s.wantsTimeseries(tq, retrieval) {
		return synthesis.SliceSequence(nil, diagnostics...), nil
	}

	fd := &feed{src: s}
	i := 0
	unit := s.mappings.Unit(feedVariable)
	return synthesis.SequenceFunc(func(ctx context.Context) (synthesis.Result, error) {
		if err := fd.load(ctx); err != nil {
			return synthesis.Result{}, err
		}
		for i < len(fd.payload.Stations) {
			st := fd.payload.Stations[i]
			i++
			id := StationID(st.Code)
			if !synthesis.Matches(tq.MonitoringFeatures, id) {
				continue
			}
			ts := retrieval
			return synthesis.Value(&synthesis.MeasurementTimeseriesTVPObservation{
				ID:                       id + "_" + feedVariable,
				ObservedPropertyVariable: "PRECIP",
				FeatureOfInterest: &synthesis.MonitoringFeature{
					ID:          id,
					Name:        st.Name,
					FeatureType: synthesis.FeaturePoint,
					Shape:       synthesis.ShapePoint,
					Coordinates: synthesis.PointCoordinate(st.Latitude, st.Longitude),
				},
				FeatureOfInterestType: synthesis.FeaturePoint,
				PhenomenonTime:        &ts,
				ResultPoints:          []synthesis.TimeValuePair{{Timestamp: retrieval, Value: NormalizeValue(st.Value)}},
				AggregationDuration:   synthesis.FrequencyNone,
				UnitOfMeasurement:     unit,
				Statistic:             synthesis.StatisticInstant,
				ResultQuality:         synthesis.QualityUnchecked,
				DataSource:            DataSourceID,
			}), nil
		}
		return synthesis.End(diagnostics...), nil
	}), nil
}

// wantsTimeseries checks the query filters the feed cannot satisfy without a request.
func (s *Source) wantsTimeseries(tq *synthesis.QueryMeasurementTimeseriesTVP, retrieval time.Time) bool {
	if !synthesis.Matches(tq.ObservedPropertyVariables, feedVariable) {
		return false
	}
	if tq.Statistic != nil &&
		!slices.Contains(tq.Statistic, synthesis.Statistic(feedStat)) &&
		!slices.Contains(tq.Statistic, synthesis.StatisticInstant) {
		return false
	}
	if tq.ResultQuality != nil &&
		!slices.Contains(tq.ResultQuality, synthesis.ResultQuality(feedQuality)) &&
		!slices.Contains(tq.ResultQuality, synthesis.QualityUnchecked) {
		return false
	}
	day := retrieval.Truncate(24 * time.Hour)
	if tq.StartDate != nil && tq.StartDate.After(retrieval) {
		return false
	}
	if tq.EndDate != nil && tq.EndDate.Before(day) {
		return false
	}
	return true
}
