package synthesis

import "time"

// Object is a synthesized domain object produced by a plugin.
type Object interface {
	Entity() EntityType
	// Namespace rewrites every plugin-local identifier carried by the object
	// into its composite form.
	Namespace(prefix string)
}

// Relationship roles for related sampling features.
const (
	RoleParent = "PARENT"
)

// RelatedSamplingFeature links a feature to another one, typically its parent.
type RelatedSamplingFeature struct {
	RelatedSamplingFeature     string      `json:"related_sampling_feature"`
	RelatedSamplingFeatureType FeatureType `json:"related_sampling_feature_type,omitempty"`
	Role                       string      `json:"role"`
}

// GeographicCoordinate is a horizontal position in decimal degrees.
type GeographicCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Units     string  `json:"units,omitempty"`
}

// VerticalCoordinate is an altitude or depth relative to a datum.
type VerticalCoordinate struct {
	Value         float64 `json:"value"`
	Datum         string  `json:"datum,omitempty"`
	DistanceUnits string  `json:"distance_units,omitempty"`
}

// AbsoluteCoordinate positions a feature on the globe.
type AbsoluteCoordinate struct {
	HorizontalPosition []GeographicCoordinate `json:"horizontal_position"`
	VerticalExtent     []VerticalCoordinate   `json:"vertical_extent,omitempty"`
}

// RepresentativeCoordinate positions a feature relative to a local reference.
type RepresentativeCoordinate struct {
	RepresentativePoint     *AbsoluteCoordinate `json:"representative_point,omitempty"`
	RepresentativePointType string              `json:"representative_point_type,omitempty"`
	VerticalPosition        *VerticalCoordinate `json:"vertical_position,omitempty"`
}

// Coordinate groups the absolute and representative positions of a feature.
type Coordinate struct {
	Absolute       *AbsoluteCoordinate       `json:"absolute,omitempty"`
	Representative *RepresentativeCoordinate `json:"representative,omitempty"`
}

// Units and datums used by plugins.
const (
	UnitsDecimalDegrees = "DD"
	DistanceUnitsMeters = "meters"
	DatumWGS84          = "WGS84"
)

// PointCoordinate builds the absolute coordinate of a point feature.
func PointCoordinate(lat, lon float64) *Coordinate {
	return &Coordinate{
		Absolute: &AbsoluteCoordinate{
			HorizontalPosition: []GeographicCoordinate{{Latitude: lat, Longitude: lon, Units: UnitsDecimalDegrees}},
		},
	}
}

// MonitoringFeature is a feature upon which monitoring is made.
type MonitoringFeature struct {
	ID                            string                   `json:"id"`
	Name                          string                   `json:"name"`
	Description                   string                   `json:"description,omitempty"`
	FeatureType                   FeatureType              `json:"feature_type"`
	Shape                         SpatialShape             `json:"shape,omitempty"`
	Coordinates                   *Coordinate              `json:"coordinates,omitempty"`
	ObservedPropertyVariables     []string                 `json:"observed_property_variables,omitempty"`
	RelatedSamplingFeatureComplex []RelatedSamplingFeature `json:"related_sampling_feature_complex,omitempty"`
	DescriptionReference          string                   `json:"description_reference,omitempty"`
	UTCOffset                     *float64                 `json:"utc_offset,omitempty"`
	URL                           string                   `json:"url,omitempty"`
	DataSource                    string                   `json:"datasource,omitempty"`
}

// Entity implements Object.
func (f *MonitoringFeature) Entity() EntityType { return EntityMonitoringFeature }

// Namespace implements Object.
func (f *MonitoringFeature) Namespace(prefix string) {
	if f == nil {
		return
	}
	f.ID = Compose(prefix, f.ID)
	for i := range f.RelatedSamplingFeatureComplex {
		rel := &f.RelatedSamplingFeatureComplex[i]
		rel.RelatedSamplingFeature = Compose(prefix, rel.RelatedSamplingFeature)
	}
}

// TimeValuePair is one point of a timeseries.
type TimeValuePair struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// MeasurementTimeseriesTVPObservation is a series of numerical observations in
// time-value-pair format.
type MeasurementTimeseriesTVPObservation struct {
	ID                       string             `json:"id,omitempty"`
	ObservedPropertyVariable string             `json:"observed_property_variable"`
	FeatureOfInterest        *MonitoringFeature `json:"feature_of_interest,omitempty"`
	FeatureOfInterestType    FeatureType        `json:"feature_of_interest_type,omitempty"`
	PhenomenonTime           *time.Time         `json:"phenomenon_time,omitempty"`
	UTCOffset                *float64           `json:"utc_offset,omitempty"`
	ResultPoints             []TimeValuePair    `json:"result_points"`
	TimeReferencePosition    string             `json:"time_reference_position,omitempty"`
	AggregationDuration      TimeFrequency      `json:"aggregation_duration"`
	UnitOfMeasurement        string             `json:"unit_of_measurement,omitempty"`
	Statistic                Statistic          `json:"statistic,omitempty"`
	ResultQuality            ResultQuality      `json:"result_quality,omitempty"`
	DataSource               string             `json:"datasource,omitempty"`
}

// Entity implements Object.
func (o *MeasurementTimeseriesTVPObservation) Entity() EntityType {
	return EntityMeasurementTimeseriesTVPObservation
}

// Namespace implements Object.
func (o *MeasurementTimeseriesTVPObservation) Namespace(prefix string) {
	if o == nil {
		return
	}
	if o.ID != "" {
		o.ID = Compose(prefix, o.ID)
	}
	if o.FeatureOfInterest != nil {
		o.FeatureOfInterest.Namespace(prefix)
	}
}
