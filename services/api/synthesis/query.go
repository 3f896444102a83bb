package synthesis

import (
	"fmt"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DateLayout is the wire format of query dates.
const DateLayout = "2006-01-02"

// Query is a caller query. Implementations are treated as immutable; the
// synthesizers derive plugin-scoped copies.
type Query interface {
	// DatasourceFilter lists the datasource id prefixes the query is restricted to.
	// An empty filter means every registered datasource.
	DatasourceFilter() []string

	scopedTo(datasourceID string) Query
}

// QueryByID addresses a single object by its composite identifier.
type QueryByID struct {
	ID         string   `json:"id"`
	Datasource []string `json:"datasource,omitempty"`
}

// DatasourceFilter implements Query.
func (q *QueryByID) DatasourceFilter() []string { return q.Datasource }

func (q *QueryByID) scopedTo(datasourceID string) Query {
	c := *q
	c.Datasource = []string{datasourceID}
	return &c
}

// QueryMonitoringFeature filters monitoring features.
type QueryMonitoringFeature struct {
	MonitoringFeatures []string    `json:"monitoring_features,omitempty"`
	ParentFeatures     []string    `json:"parent_features,omitempty"`
	FeatureType        FeatureType `json:"feature_type,omitempty"`
	Datasource         []string    `json:"datasource,omitempty"`
}

// DatasourceFilter implements Query.
func (q *QueryMonitoringFeature) DatasourceFilter() []string { return q.Datasource }

func (q *QueryMonitoringFeature) scopedTo(datasourceID string) Query {
	c := q.clone()
	c.Datasource = []string{datasourceID}
	return c
}

func (q *QueryMonitoringFeature) clone() *QueryMonitoringFeature {
	c := *q
	c.MonitoringFeatures = slices.Clone(q.MonitoringFeatures)
	c.ParentFeatures = slices.Clone(q.ParentFeatures)
	c.Datasource = slices.Clone(q.Datasource)
	return &c
}

// QueryMeasurementTimeseriesTVP filters timeseries observations.
type QueryMeasurementTimeseriesTVP struct {
	MonitoringFeatures        []string        `json:"monitoring_features"`
	ObservedPropertyVariables []string        `json:"observed_property_variables"`
	StartDate                 *time.Time      `json:"start_date,omitempty"`
	EndDate                   *time.Time      `json:"end_date,omitempty"`
	AggregationDuration       TimeFrequency   `json:"aggregation_duration"`
	Statistic                 []Statistic     `json:"statistic,omitempty"`
	ResultQuality             []ResultQuality `json:"result_quality,omitempty"`
	Datasource                []string        `json:"datasource,omitempty"`
}

// DatasourceFilter implements Query.
func (q *QueryMeasurementTimeseriesTVP) DatasourceFilter() []string { return q.Datasource }

func (q *QueryMeasurementTimeseriesTVP) scopedTo(datasourceID string) Query {
	c := q.clone()
	c.Datasource = []string{datasourceID}
	return c
}

func (q *QueryMeasurementTimeseriesTVP) clone() *QueryMeasurementTimeseriesTVP {
	c := *q
	c.MonitoringFeatures = slices.Clone(q.MonitoringFeatures)
	c.ObservedPropertyVariables = slices.Clone(q.ObservedPropertyVariables)
	c.Statistic = slices.Clone(q.Statistic)
	c.ResultQuality = slices.Clone(q.ResultQuality)
	c.Datasource = slices.Clone(q.Datasource)
	return &c
}

type timeseriesFields QueryMeasurementTimeseriesTVP

// timeseriesWire carries the query dates in DateLayout.
type timeseriesWire struct {
	timeseriesFields
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// MarshalJSON writes start_date and end_date as YYYY-MM-DD.
func (q QueryMeasurementTimeseriesTVP) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeseriesWire{
		timeseriesFields: timeseriesFields(q),
		StartDate:        formatDate(q.StartDate),
		EndDate:          formatDate(q.EndDate),
	})
}

// UnmarshalJSON reads start_date and end_date as YYYY-MM-DD.
func (q *QueryMeasurementTimeseriesTVP) UnmarshalJSON(data []byte) error {
	var w timeseriesWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := parseDate("start_date", w.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", w.EndDate)
	if err != nil {
		return err
	}
	*q = QueryMeasurementTimeseriesTVP(w.timeseriesFields)
	q.StartDate, q.EndDate = start, end
	return nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

func parseDate(name string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}
