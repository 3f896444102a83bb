package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/config"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

type envelope struct {
	ID       string              `json:"id"`
	Query    json.RawMessage     `json:"query"`
	Data     json.RawMessage     `json:"data"`
	Messages []synthesis.Message `json:"messages"`
}

type feature struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func featurePlugin(prefix string, localIDs ...string) *synthesis.Plugin {
	build := func(id string) *synthesis.MonitoringFeature {
		return &synthesis.MonitoringFeature{ID: id, Name: prefix + " " + id, FeatureType: synthesis.FeaturePoint}
	}
	return &synthesis.Plugin{
		DataSource: synthesis.DataSource{ID: prefix, Name: prefix, IDPrefix: prefix},
		Views: map[synthesis.EntityType]synthesis.View{
			synthesis.EntityMonitoringFeature: {
				List: func(context.Context, synthesis.Query) (synthesis.Sequence, error) {
					objs := make([]synthesis.Object, 0, len(localIDs))
					for _, id := range localIDs {
						objs = append(objs, build(id))
					}
					return synthesis.SliceSequence(objs), nil
				},
				Get: func(_ context.Context, q *synthesis.QueryByID) (synthesis.Object, error) {
					for _, id := range localIDs {
						if id == q.ID {
							return build(id), nil
						}
					}
					return nil, nil
				},
			},
		},
	}
}

func newTestServer(t *testing.T, token string) (*Server, *prometheus.Registry) {
	t.Helper()
	registry, err := synthesis.NewRegistry(featurePlugin("ALPHA", "1", "2"), featurePlugin("BETA", "1"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := New(config.Config{Port: 8080, BearerToken: token}, registry, zap.NewNop(), reg)
	return srv, reg
}

func get(t *testing.T, srv *Server, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func Test_Healthz(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func Test_BearerAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/datasources").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/datasources", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, srv, "/datasources", "Authorization", "secret").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/datasources", "Authorization", "Bearer secret").Code)
}

func Test_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	req := httptest.NewRequest(http.MethodOptions, "/monitoringfeatures", nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func Test_ListDataSources_RegistrationOrder(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := get(t, srv, "/datasources")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []synthesis.DataSource `json:"data"`
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "ALPHA", body.Data[0].IDPrefix)
	assert.Equal(t, "BETA", body.Data[1].IDPrefix)
	assert.Equal(t, 2, body.Meta.Count)
}

func Test_ListMonitoringFeatures(t *testing.T) {
	srv, _ := newTestServer(t, "")

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all datasources", "/monitoringfeatures", []string{"ALPHA-1", "ALPHA-2", "BETA-1"}},
		{"datasource filter", "/monitoringfeatures?datasource=BETA", []string{"BETA-1"}},
		{"repeated datasource in filter order", "/monitoringfeatures?datasource=BETA&datasource=ALPHA", []string{"BETA-1", "ALPHA-1", "ALPHA-2"}},
		{"comma separated datasource", "/monitoringfeatures?datasource=ALPHA,BETA", []string{"ALPHA-1", "ALPHA-2", "BETA-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode(t, rec)
			assert.NotEmpty(t, body.ID)
			assert.Empty(t, body.Messages)

			var data []feature
			require.NoError(t, json.Unmarshal(body.Data, &data))
			ids := make([]string, 0, len(data))
			for _, f := range data {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func Test_ListMonitoringFeatures_InvalidFeatureType(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := get(t, srv, "/monitoringfeatures?feature_type=volcano")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")

	rec = get(t, srv, "/monitoringfeatures?feature_type=horizontal_path")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_ListTimeseries_Validation(t *testing.T) {
	srv, _ := newTestServer(t, "")

	tests := []struct {
		name   string
		target string
	}{
		{"missing monitoring features", "/measurement_tvp_timeseries?observed_property_variables=PRECIP"},
		{"missing variables", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1"},
		{"blank monitoring features", "/measurement_tvp_timeseries?monitoring_features=&observed_property_variables=PRECIP"},
		{"comma-only monitoring features", "/measurement_tvp_timeseries?monitoring_features=,,&observed_property_variables=PRECIP"},
		{"blank variables", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables="},
		{"bad start date", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&start_date=2024-13-01"},
		{"bad end date", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&end_date=yesterday"},
		{"bad aggregation", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&aggregation_duration=WEEK"},
		{"bad statistic", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&statistic=MEAN,MEDIAN"},
		{"bad result quality", "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&result_quality=GOOD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, srv, tt.target).Code)
		})
	}
}

func Test_ListTimeseries_PluginsWithoutView(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := get(t, srv, "/measurement_tvp_timeseries?monitoring_features=ALPHA-1&observed_property_variables=PRECIP&start_date=2024-01-01&end_date=2024-01-31&statistic=mean&result_quality=checked")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.JSONEq(t, `[]`, string(body.Data))
	var echoed map[string]any
	require.NoError(t, json.Unmarshal(body.Query, &echoed))
	assert.Equal(t, "2024-01-01", echoed["start_date"])
	assert.Equal(t, "2024-01-31", echoed["end_date"])
	require.Len(t, body.Messages, 2)
	for i, ds := range []string{"ALPHA", "BETA"} {
		assert.Equal(t, synthesis.SeverityWarn, body.Messages[i].Level)
		assert.Equal(t, "plugin view does not exist", body.Messages[i].Text)
		assert.Equal(t, []string{ds, string(synthesis.EntityMeasurementTimeseriesTVPObservation)}, body.Messages[i].Where)
	}
}

func Test_GetMonitoringFeature(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := get(t, srv, "/monitoringfeatures/BETA-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var f feature
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &f))
	assert.Equal(t, "BETA-1", f.ID)
	assert.Equal(t, "BETA 1", f.Name)

	rec = get(t, srv, "/monitoringfeatures/BETA-9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.JSONEq(t, `null`, string(body.Data))
	assert.Empty(t, body.Messages)

	rec = get(t, srv, "/monitoringfeatures/GAMMA-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, synthesis.SeverityError, body.Messages[0].Level)
	assert.Contains(t, body.Messages[0].Text, "GAMMA-1")
}

func Test_GetTimeseries_NoDetail(t *testing.T) {
	srv, _ := newTestServer(t, "")
	rec := get(t, srv, "/measurement_tvp_timeseries/ALPHA-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, synthesis.SeverityWarn, body.Messages[0].Level)
}

func Test_Metrics(t *testing.T) {
	srv, reg := newTestServer(t, "")
	require.Equal(t, http.StatusOK, get(t, srv, "/monitoringfeatures").Code)
	require.Equal(t, http.StatusNotFound, get(t, srv, "/monitoringfeatures/GAMMA-1").Code)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	assert.True(t, found["synthesis_objects_total"])
	assert.True(t, found["synthesis_messages_total"])
	assert.True(t, found["synthesis_request_duration_seconds"])

	rec := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `synthesis_objects_total{entity="MonitoringFeature"} 3`))
	assert.True(t, strings.Contains(rec.Body.String(), `synthesis_messages_total{datasource="",severity="ERROR"} 1`))
}
