package synthesis

import (
	"fmt"
	"strings"
)

// EntityType names a synthesized model kind. It keys the plugin capability map.
type EntityType string

const (
	EntityMonitoringFeature                   EntityType = "MonitoringFeature"
	EntityMeasurementTimeseriesTVPObservation EntityType = "MeasurementTimeseriesTVPObservation"
)

// TimeFrequency is the bucketing granularity of a timeseries.
type TimeFrequency string

const (
	FrequencyYear   TimeFrequency = "YEAR"
	FrequencyMonth  TimeFrequency = "MONTH"
	FrequencyDay    TimeFrequency = "DAY"
	FrequencyHour   TimeFrequency = "HOUR"
	FrequencyMinute TimeFrequency = "MINUTE"
	FrequencySecond TimeFrequency = "SECOND"
	FrequencyNone   TimeFrequency = "NONE"
)

var timeFrequencies = []TimeFrequency{
	FrequencyYear, FrequencyMonth, FrequencyDay, FrequencyHour, FrequencyMinute, FrequencySecond, FrequencyNone,
}

// ParseTimeFrequency accepts a case-insensitive frequency name. An empty value is DAY.
func ParseTimeFrequency(s string) (TimeFrequency, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return FrequencyDay, nil
	}
	for _, f := range timeFrequencies {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid aggregation_duration: %s", s)
}

// Statistic is the statistical property of an observation result.
type Statistic string

const (
	StatisticInstant Statistic = "INSTANT"
	StatisticMean    Statistic = "MEAN"
	StatisticMin     Statistic = "MIN"
	StatisticMax     Statistic = "MAX"
	StatisticTotal   Statistic = "TOTAL"
)

var statistics = []Statistic{StatisticInstant, StatisticMean, StatisticMin, StatisticMax, StatisticTotal}

// ParseStatistic accepts a case-insensitive statistic name.
func ParseStatistic(s string) (Statistic, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, st := range statistics {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid statistic: %s", s)
}

// ResultQuality is the quality assessment of a result.
type ResultQuality string

const (
	QualityChecked          ResultQuality = "CHECKED"
	QualityUnchecked        ResultQuality = "UNCHECKED"
	QualityPartiallyChecked ResultQuality = "PARTIALLY_CHECKED"
)

var resultQualities = []ResultQuality{QualityChecked, QualityUnchecked, QualityPartiallyChecked}

// ParseResultQuality accepts a case-insensitive result quality name.
func ParseResultQuality(s string) (ResultQuality, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, q := range resultQualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("invalid result_quality: %s", s)
}

// FeatureType classifies a monitoring feature.
type FeatureType string

const (
	FeatureRegion         FeatureType = "REGION"
	FeatureSubregion      FeatureType = "SUBREGION"
	FeatureBasin          FeatureType = "BASIN"
	FeatureSubbasin       FeatureType = "SUBBASIN"
	FeatureWatershed      FeatureType = "WATERSHED"
	FeatureSubwatershed   FeatureType = "SUBWATERSHED"
	FeatureSite           FeatureType = "SITE"
	FeaturePlot           FeatureType = "PLOT"
	FeatureHorizontalPath FeatureType = "HORIZONTAL PATH"
	FeatureVerticalPath   FeatureType = "VERTICAL PATH"
	FeaturePoint          FeatureType = "POINT"
)

var featureTypes = []FeatureType{
	FeatureRegion, FeatureSubregion, FeatureBasin, FeatureSubbasin, FeatureWatershed, FeatureSubwatershed,
	FeatureSite, FeaturePlot, FeatureHorizontalPath, FeatureVerticalPath, FeaturePoint,
}

// ParseFeatureType accepts a case-insensitive feature type; underscores stand for spaces.
func ParseFeatureType(s string) (FeatureType, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	for _, ft := range featureTypes {
		if string(ft) == s {
			return ft, nil
		}
	}
	return "", fmt.Errorf("invalid feature_type: %s", s)
}

// SpatialShape is the OGC sampling shape of a feature.
type SpatialShape string

const (
	ShapePoint   SpatialShape = "POINT"
	ShapeCurve   SpatialShape = "CURVE"
	ShapeSurface SpatialShape = "SURFACE"
	ShapeSolid   SpatialShape = "SOLID"
)

// ShapeOf returns the sampling shape a feature type is drawn with.
func ShapeOf(ft FeatureType) SpatialShape {
	switch ft {
	case FeaturePoint:
		return ShapePoint
	case FeatureHorizontalPath, FeatureVerticalPath:
		return ShapeCurve
	case "":
		return ""
	default:
		return ShapeSurface
	}
}

// AttributeKind names a broker vocabulary that plugins map to their own terms.
type AttributeKind string

const (
	AttributeStatistic     AttributeKind = "STATISTIC"
	AttributeResultQuality AttributeKind = "RESULT_QUALITY"
	AttributeAggregation   AttributeKind = "AGGREGATION_DURATION"
)
