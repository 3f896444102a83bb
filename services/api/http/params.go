package http

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

var registerValidators sync.Once

// installValidators adds the vocabulary rules to gin's validator engine.
func installValidators() {
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("isodate", validateISODate)
		_ = v.RegisterValidation("notblank", validateNotBlank)
		_ = v.RegisterValidation("frequency", validateVocabulary(func(s string) error {
			_, err := synthesis.ParseTimeFrequency(s)
			return err
		}))
		_ = v.RegisterValidation("featuretype", validateVocabulary(func(s string) error {
			_, err := synthesis.ParseFeatureType(s)
			return err
		}))
		_ = v.RegisterValidation("statistics", validateVocabulary(func(s string) error {
			_, err := synthesis.ParseStatistic(s)
			return err
		}))
		_ = v.RegisterValidation("qualities", validateVocabulary(func(s string) error {
			_, err := synthesis.ParseResultQuality(s)
			return err
		}))
	})
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(synthesis.DateLayout, fl.Field().String())
	return err == nil
}

// validateNotBlank requires a list that still has items once comma-joined
// values are split and blanks dropped.
func validateNotBlank(fl validator.FieldLevel) bool {
	values, ok := fl.Field().Interface().([]string)
	return ok && len(synthesis.SplitList(values...)) > 0
}

// validateVocabulary accepts a string or a list of possibly comma-joined
// strings whose items all parse.
func validateVocabulary(parse func(string) error) validator.Func {
	return func(fl validator.FieldLevel) bool {
		var values []string
		switch v := fl.Field().Interface().(type) {
		case string:
			values = []string{v}
		case []string:
			values = synthesis.SplitList(v...)
		default:
			return false
		}
		for _, s := range values {
			if err := parse(s); err != nil {
				return false
			}
		}
		return true
	}
}

// featureParams are the monitoring feature list parameters.
type featureParams struct {
	MonitoringFeatures []string `form:"monitoring_features"`
	ParentFeatures     []string `form:"parent_features"`
	FeatureType        string   `form:"feature_type" binding:"omitempty,featuretype"`
	Datasource         []string `form:"datasource"`
}

func (p featureParams) query() *synthesis.QueryMonitoringFeature {
	q := &synthesis.QueryMonitoringFeature{
		MonitoringFeatures: synthesis.SplitList(p.MonitoringFeatures...),
		ParentFeatures:     synthesis.SplitList(p.ParentFeatures...),
		Datasource:         synthesis.SplitList(p.Datasource...),
	}
	if p.FeatureType != "" {
		q.FeatureType, _ = synthesis.ParseFeatureType(p.FeatureType)
	}
	return q
}

// timeseriesParams are the measurement timeseries list parameters.
type timeseriesParams struct {
	MonitoringFeatures        []string `form:"monitoring_features" binding:"required,notblank"`
	ObservedPropertyVariables []string `form:"observed_property_variables" binding:"required,notblank"`
	StartDate                 string   `form:"start_date" binding:"omitempty,isodate"`
	EndDate                   string   `form:"end_date" binding:"omitempty,isodate"`
	AggregationDuration       string   `form:"aggregation_duration" binding:"omitempty,frequency"`
	Statistic                 []string `form:"statistic" binding:"omitempty,statistics"`
	ResultQuality             []string `form:"result_quality" binding:"omitempty,qualities"`
	Datasource                []string `form:"datasource"`
}

func (p timeseriesParams) query() *synthesis.QueryMeasurementTimeseriesTVP {
	q := &synthesis.QueryMeasurementTimeseriesTVP{
		MonitoringFeatures:        synthesis.SplitList(p.MonitoringFeatures...),
		ObservedPropertyVariables: synthesis.SplitList(p.ObservedPropertyVariables...),
		Datasource:                synthesis.SplitList(p.Datasource...),
	}
	q.AggregationDuration, _ = synthesis.ParseTimeFrequency(p.AggregationDuration)
	if p.StartDate != "" {
		t, _ := time.Parse(synthesis.DateLayout, p.StartDate)
		q.StartDate = &t
	}
	if p.EndDate != "" {
		t, _ := time.Parse(synthesis.DateLayout, p.EndDate)
		q.EndDate = &t
	}
	for _, s := range synthesis.SplitList(p.Statistic...) {
		st, _ := synthesis.ParseStatistic(s)
		q.Statistic = append(q.Statistic, st)
	}
	for _, s := range synthesis.SplitList(p.ResultQuality...) {
		rq, _ := synthesis.ParseResultQuality(s)
		q.ResultQuality = append(q.ResultQuality, rq)
	}
	return q
}
