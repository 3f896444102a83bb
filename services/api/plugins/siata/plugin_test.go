package siata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

const feedJSON = `{
  "red": "pluviometrica",
  "estaciones": [
    {"barrio": "Belen", "ciudad": "Medellin", "codigo": 101, "comuna": "16", "latitud": 6.23, "longitud": -75.6, "nombre": "Belen Rosales", "subcuenca": "La Picacha", "valor": 1.5},
    {"barrio": "Robledo", "ciudad": "Medellin", "codigo": 202, "comuna": "7", "latitud": 6.27, "longitud": -75.59, "nombre": "Robledo", "subcuenca": "La Iguana", "valor": -999},
    {"barrio": "Laureles", "ciudad": "Medellin", "codigo": 303, "comuna": "11", "latitud": 6.24, "longitud": -75.59, "nombre": "Laureles", "subcuenca": "La Picacha", "valor": 0}
  ]
}`

func feedServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(feedJSON))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newAccess(t *testing.T, src *Source, entity synthesis.EntityType) *synthesis.ModelAccess {
	t.Helper()
	reg, err := synthesis.NewRegistry(src.Plugin())
	require.NoError(t, err)
	if entity == synthesis.EntityMonitoringFeature {
		return synthesis.NewMonitoringFeatureAccess(reg, synthesis.WithLogger(zap.NewNop()))
	}
	return synthesis.NewTimeseriesAccess(reg, synthesis.WithLogger(zap.NewNop()))
}

func Test_FetchCurrentStations(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK)

	payload, err := FetchCurrentStations(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "pluviometrica", payload.Network)
	require.Len(t, payload.Stations, 3)
	assert.Equal(t, 101, payload.Stations[0].Code)
}

func Test_FetchCurrentStations_Unauthorized(t *testing.T) {
	srv, _ := feedServer(t, http.StatusForbidden)

	_, err := FetchCurrentStations(context.Background(), srv.Client(), srv.URL)
	assert.ErrorIs(t, err, synthesis.ErrInvalidCredentials)
}

func Test_NormalizeValue(t *testing.T) {
	v := -999.0
	assert.Nil(t, NormalizeValue(&v))
	assert.Nil(t, NormalizeValue(nil))
	ok := 2.5
	assert.Equal(t, 2.5, *NormalizeValue(&ok))
}

func Test_ListMonitoringFeatures(t *testing.T) {
	srv, hits := feedServer(t, http.StatusOK)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMonitoringFeature)

	resp := access.List(&synthesis.QueryMonitoringFeature{})
	assert.Equal(t, 0, *hits, "the feed is requested on first pull")

	objs := resp.Stream.Collect(context.Background())
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		ids = append(ids, o.(*synthesis.MonitoringFeature).ID)
	}
	assert.Equal(t, []string{
		"SIATA-subbasin_la_picacha", "SIATA-subbasin_la_iguana",
		"SIATA-pluvio_101", "SIATA-pluvio_202", "SIATA-pluvio_303",
	}, ids)
	assert.Equal(t, 1, *hits)

	station := objs[2].(*synthesis.MonitoringFeature)
	require.Len(t, station.RelatedSamplingFeatureComplex, 1)
	assert.Equal(t, "SIATA-subbasin_la_picacha", station.RelatedSamplingFeatureComplex[0].RelatedSamplingFeature)
}

func Test_ListMonitoringFeatures_ParentFilter(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMonitoringFeature)

	resp := access.List(&synthesis.QueryMonitoringFeature{
		ParentFeatures: []string{"SIATA-subbasin_la_picacha", "OTHER-subbasin_la_iguana"},
	})

	objs := resp.Stream.Collect(context.Background())
	require.Len(t, objs, 2)
	assert.Equal(t, "SIATA-pluvio_101", objs[0].(*synthesis.MonitoringFeature).ID)
	assert.Equal(t, "SIATA-pluvio_303", objs[1].(*synthesis.MonitoringFeature).ID)
}

func Test_RetrieveMonitoringFeature(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMonitoringFeature)

	resp := access.Retrieve(context.Background(), &synthesis.QueryByID{ID: "SIATA-pluvio_202"})
	require.NotNil(t, resp.Data)
	assert.Equal(t, "Robledo", resp.Data.(*synthesis.MonitoringFeature).Name)

	missing := access.Retrieve(context.Background(), &synthesis.QueryByID{ID: "SIATA-pluvio_999"})
	assert.Nil(t, missing.Data)
	assert.Empty(t, missing.Messages())
}

func Test_ListTimeseries(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK)
	src := New(srv.Client(), srv.URL)
	fixed := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return fixed }
	access := newAccess(t, src, synthesis.EntityMeasurementTimeseriesTVPObservation)

	resp := access.List(&synthesis.QueryMeasurementTimeseriesTVP{
		MonitoringFeatures:        []string{"SIATA-pluvio_101", "SIATA-pluvio_202"},
		ObservedPropertyVariables: []string{"PRECIP"},
		AggregationDuration:       synthesis.FrequencyNone,
	})

	objs := resp.Stream.Collect(context.Background())
	require.Len(t, objs, 2)
	first := objs[0].(*synthesis.MeasurementTimeseriesTVPObservation)
	assert.Equal(t, "SIATA-pluvio_101_precipitacion", first.ID)
	assert.Equal(t, "SIATA-pluvio_101", first.FeatureOfInterest.ID)
	assert.Equal(t, "mm", first.UnitOfMeasurement)
	require.Len(t, first.ResultPoints, 1)
	assert.Equal(t, fixed, first.ResultPoints[0].Timestamp)
	assert.Equal(t, 1.5, *first.ResultPoints[0].Value)

	second := objs[1].(*synthesis.MeasurementTimeseriesTVPObservation)
	assert.Nil(t, second.ResultPoints[0].Value, "sentinel values are dropped")
	assert.Empty(t, resp.Messages())
}

func Test_ListTimeseries_AggregatedRequestCarriesDiagnostic(t *testing.T) {
	srv, _ := feedServer(t, http.StatusOK)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMeasurementTimeseriesTVPObservation)

	resp := access.List(&synthesis.QueryMeasurementTimeseriesTVP{
		MonitoringFeatures:        []string{"SIATA-pluvio_303"},
		ObservedPropertyVariables: []string{"PRECIP"},
		AggregationDuration:       synthesis.FrequencyMonth,
	})

	assert.Len(t, resp.Stream.Collect(context.Background()), 1)
	msgs := resp.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, synthesis.SeverityWarn, msgs[0].Level)
	assert.Contains(t, msgs[0].Text, "DAY aggregation was not applied")
	assert.Equal(t, []string{DataSourceID, string(synthesis.EntityMeasurementTimeseriesTVPObservation)}, msgs[0].Where)
}

func Test_ListTimeseries_UnmappedVariableSkipsRequest(t *testing.T) {
	srv, hits := feedServer(t, http.StatusOK)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMeasurementTimeseriesTVPObservation)

	resp := access.List(&synthesis.QueryMeasurementTimeseriesTVP{
		MonitoringFeatures:        []string{"SIATA-pluvio_101"},
		ObservedPropertyVariables: []string{"Acetate"},
		AggregationDuration:       synthesis.FrequencyNone,
	})

	assert.Empty(t, resp.Stream.Collect(context.Background()))
	assert.Equal(t, 0, *hits)
}

func Test_ListTimeseries_FeedFailureBecomesError(t *testing.T) {
	srv, _ := feedServer(t, http.StatusBadGateway)
	access := newAccess(t, New(srv.Client(), srv.URL), synthesis.EntityMeasurementTimeseriesTVPObservation)

	resp := access.List(&synthesis.QueryMeasurementTimeseriesTVP{
		ObservedPropertyVariables: []string{"PRECIP"},
		AggregationDuration:       synthesis.FrequencyNone,
	})

	assert.Empty(t, resp.Stream.Collect(context.Background()))
	msgs := resp.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, synthesis.SeverityError, msgs[0].Level)
}
