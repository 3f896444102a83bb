package synthesis_test

import (
	"context"
	"errors"
	"strings"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

// stubMapper maps broker terms through fixed tables.
type stubMapper struct {
	variables  map[string][]string
	attributes map[synthesis.AttributeKind]map[string]string
	err        error
	calls      int
}

func (m *stubMapper) ObservedProperties(_ context.Context, variables []string) ([]synthesis.ObservedProperty, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]synthesis.ObservedProperty, 0)
	for _, v := range variables {
		for _, dv := range m.variables[v] {
			out = append(out, synthesis.ObservedProperty{BrokerVariable: v, DatasourceVariable: dv})
		}
	}
	return out, nil
}

func (m *stubMapper) MappedAttributes(_ context.Context, kind synthesis.AttributeKind, values []string, _ bool) ([]synthesis.MappedAttribute, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]synthesis.MappedAttribute, 0)
	for _, v := range values {
		if id, ok := m.attributes[kind][v]; ok {
			out = append(out, synthesis.MappedAttribute{Kind: kind, BrokerValue: v, DatasourceAttrID: id})
		}
	}
	return out, nil
}

// recordingPlugin yields monitoring features with the given local ids and
// records the queries it received.
type recordingPlugin struct {
	plugin    *synthesis.Plugin
	listed    []synthesis.Query
	retrieved []*synthesis.QueryByID
}

func newFeaturePlugin(prefix string, localIDs ...string) *recordingPlugin {
	rp := &recordingPlugin{}
	list := func(_ context.Context, q synthesis.Query) (synthesis.Sequence, error) {
		rp.listed = append(rp.listed, q)
		objs := make([]synthesis.Object, 0, len(localIDs))
		for _, id := range localIDs {
			objs = append(objs, &synthesis.MonitoringFeature{ID: id, Name: "feature " + id, FeatureType: synthesis.FeaturePoint})
		}
		return synthesis.SliceSequence(objs), nil
	}
	get := func(_ context.Context, q *synthesis.QueryByID) (synthesis.Object, error) {
		rp.retrieved = append(rp.retrieved, q)
		for _, id := range localIDs {
			if id == q.ID {
				return &synthesis.MonitoringFeature{ID: id, Name: "feature " + id}, nil
			}
		}
		return nil, nil
	}
	rp.plugin = &synthesis.Plugin{
		DataSource: synthesis.DataSource{ID: strings.ToLower(prefix) + "-source", Name: prefix, IDPrefix: prefix},
		Views: map[synthesis.EntityType]synthesis.View{
			synthesis.EntityMonitoringFeature: {List: list, Get: get},
		},
	}
	return rp
}

func failingPlugin(prefix string, err error) *synthesis.Plugin {
	return &synthesis.Plugin{
		DataSource: synthesis.DataSource{ID: strings.ToLower(prefix) + "-source", IDPrefix: prefix},
		Views: map[synthesis.EntityType]synthesis.View{
			synthesis.EntityMonitoringFeature: {
				List: func(context.Context, synthesis.Query) (synthesis.Sequence, error) { return nil, err },
				Get:  func(context.Context, *synthesis.QueryByID) (synthesis.Object, error) { return nil, err },
			},
		},
	}
}

var errBackendDown = errors.New("backend down")

func featureIDs(objs []synthesis.Object) []string {
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		ids = append(ids, o.(*synthesis.MonitoringFeature).ID)
	}
	return ids
}

func countLevel(msgs []synthesis.Message, level synthesis.Severity) int {
	n := 0
	for _, m := range msgs {
		if m.Level == level {
			n++
		}
	}
	return n
}
