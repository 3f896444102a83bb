package synthesis

import (
	"context"
)

// Synthesizer translates a caller query into the query handed to one plugin.
// It never fails: terms that cannot be translated are omitted, and mapper
// failures are reported to sink under loc.
type Synthesizer interface {
	Synthesize(ctx context.Context, p *Plugin, q Query, sink *MessageSink, loc Location) Query
}

// MonitoringFeatureSynthesizer translates monitoring feature queries.
type MonitoringFeatureSynthesizer struct{}

// Synthesize implements Synthesizer.
func (MonitoringFeatureSynthesizer) Synthesize(_ context.Context, p *Plugin, q Query, _ *MessageSink, _ Location) Query {
	mq, ok := q.(*QueryMonitoringFeature)
	if !ok {
		return q.scopedTo(p.DataSource.ID)
	}
	prefix := p.DataSource.IDPrefix
	out := mq.clone()
	if len(mq.MonitoringFeatures) > 0 {
		out.MonitoringFeatures = ExtractMany(prefix, mq.MonitoringFeatures...)
	}
	if len(mq.ParentFeatures) > 0 {
		out.ParentFeatures = ExtractMany(prefix, mq.ParentFeatures...)
	}
	out.Datasource = []string{p.DataSource.ID}
	return out
}

// TimeseriesSynthesizer translates measurement timeseries queries.
type TimeseriesSynthesizer struct {
	// TranslateResultQuality maps result_quality through the plugin's attribute
	// mapping. Disabled by default: result quality values pass through untouched.
	TranslateResultQuality bool
}

// Synthesize implements Synthesizer.
func (s TimeseriesSynthesizer) Synthesize(ctx context.Context, p *Plugin, q Query, sink *MessageSink, loc Location) Query {
	tq, ok := q.(*QueryMeasurementTimeseriesTVP)
	if !ok {
		return q.scopedTo(p.DataSource.ID)
	}
	out := tq.clone()

	if len(tq.MonitoringFeatures) > 0 {
		out.MonitoringFeatures = ExtractMany(p.DataSource.IDPrefix, tq.MonitoringFeatures...)
	}

	if len(tq.ObservedPropertyVariables) > 0 {
		out.ObservedPropertyVariables = observedVariables(ctx, p, tq.ObservedPropertyVariables, sink, loc)
	}

	out.AggregationDuration = NormalizeAggregation(tq.AggregationDuration)

	if out.AggregationDuration == FrequencyDay && len(tq.Statistic) > 0 {
		values := make([]string, 0, len(tq.Statistic))
		for _, st := range tq.Statistic {
			values = append(values, string(st))
		}
		mapped := mappedAttributes(ctx, p, AttributeStatistic, values, sink, loc)
		out.Statistic = make([]Statistic, 0, len(mapped))
		for _, m := range mapped {
			out.Statistic = append(out.Statistic, Statistic(m))
		}
	}

	if s.TranslateResultQuality && len(tq.ResultQuality) > 0 {
		values := make([]string, 0, len(tq.ResultQuality))
		for _, rq := range tq.ResultQuality {
			values = append(values, string(rq))
		}
		mapped := mappedAttributes(ctx, p, AttributeResultQuality, values, sink, loc)
		out.ResultQuality = make([]ResultQuality, 0, len(mapped))
		for _, m := range mapped {
			out.ResultQuality = append(out.ResultQuality, ResultQuality(m))
		}
	}

	out.Datasource = []string{p.DataSource.ID}
	return out
}

// NormalizeAggregation collapses every aggregation except NONE to DAY.
func NormalizeAggregation(f TimeFrequency) TimeFrequency {
	if f == FrequencyNone {
		return FrequencyNone
	}
	return FrequencyDay
}

func observedVariables(ctx context.Context, p *Plugin, variables []string, sink *MessageSink, loc Location) []string {
	out := make([]string, 0, len(variables))
	if p.Mapper == nil {
		return out
	}
	props, err := p.Mapper.ObservedProperties(ctx, variables)
	if err != nil {
		sink.Warn(loc, "observed property variables could not be mapped: %v", err)
		return out
	}
	for _, op := range props {
		if op.DatasourceVariable != "" {
			out = append(out, op.DatasourceVariable)
		}
	}
	return out
}

func mappedAttributes(ctx context.Context, p *Plugin, kind AttributeKind, values []string, sink *MessageSink, loc Location) []string {
	out := make([]string, 0, len(values))
	if p.Mapper == nil {
		return out
	}
	attrs, err := p.Mapper.MappedAttributes(ctx, kind, values, true)
	if err != nil {
		sink.Warn(loc, "%s values could not be mapped: %v", kind, err)
		return out
	}
	for _, a := range attrs {
		if a.DatasourceAttrID != "" {
			out = append(out, a.DatasourceAttrID)
		}
	}
	return out
}
