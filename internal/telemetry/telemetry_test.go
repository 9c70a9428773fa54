// FilePath: internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/traksense/hub/internal/errors"
	"github.com/traksense/hub/internal/models"
)

func TestIntervalForWindowBoundaries(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   Interval
	}{
		{30 * time.Minute, IntervalRaw},
		{59 * time.Minute, IntervalRaw},
		{time.Hour, Interval1m},
		{6 * time.Hour, Interval1m},
		{6*time.Hour + time.Minute, Interval5m},
		{24 * time.Hour, Interval5m},
		{25 * time.Hour, Interval15m},
		{7 * 24 * time.Hour, Interval15m},
		{8 * 24 * time.Hour, Interval1h},
		{30 * 24 * time.Hour, Interval1h},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IntervalFor(tc.window), "window %s", tc.window)
	}
}

func TestIntervalDuration(t *testing.T) {
	require.Equal(t, time.Duration(0), IntervalRaw.Duration())
	require.Equal(t, time.Minute, Interval1m.Duration())
	require.Equal(t, 5*time.Minute, Interval5m.Duration())
	require.Equal(t, 15*time.Minute, Interval15m.Duration())
	require.Equal(t, time.Hour, Interval1h.Duration())
}

func TestEffectiveIntervalDerivesFromWindow(t *testing.T) {
	now := time.Now()

	q := HistoryQuery{From: now.Add(-3 * time.Hour), To: now}
	require.Equal(t, Interval1m, q.EffectiveInterval())

	// An explicit interval wins over the derived one
	q.Interval = IntervalRaw
	require.Equal(t, IntervalRaw, q.EffectiveInterval())
}

func tsp(t time.Time) *time.Time { return &t }

func fp(f float64) *float64 { return &f }

func TestGroupHistoryPreservesFirstAppearanceOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	points := []historyPoint{
		{SensorID: "temp_return", TS: tsp(base), Value: fp(11.2)},
		{SensorID: "temp_supply", TS: tsp(base), Value: fp(6.8)},
		{SensorID: "temp_return", TS: tsp(base.Add(time.Minute)), Value: fp(11.4)},
	}

	series := groupHistory(points)
	require.Len(t, series, 2)
	require.Equal(t, "temp_return", series[0].SensorTag)
	require.Equal(t, "temp_supply", series[1].SensorTag)
	require.Len(t, series[0].Data, 2)
	require.Equal(t, 11.4, series[0].Data[1].Value)
}

func TestGroupHistoryToleratesAggregatedFieldNames(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	points := []historyPoint{
		// Aggregated points use bucket/avg_value
		{SensorID: "temp_supply", Bucket: tsp(base), AvgValue: fp(6.5)},
		// Latest-value points use last_value
		{SensorID: "temp_supply", Bucket: tsp(base.Add(time.Minute)), LastValue: fp(6.9)},
		// Points without any timestamp or value are dropped
		{SensorID: "temp_supply", Value: fp(1.0)},
		{SensorID: "temp_supply", TS: tsp(base.Add(2 * time.Minute))},
	}

	series := groupHistory(points)
	require.Len(t, series, 1)
	require.Len(t, series[0].Data, 2)
	require.Equal(t, 6.5, series[0].Data[0].Value)
	require.Equal(t, 6.9, series[0].Data[1].Value)
}

func TestGroupHistoryEmpty(t *testing.T) {
	require.Empty(t, groupHistory(nil))
}

func TestAPIClientFetchSensorHistory(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotPath string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(historyResponse{Data: []historyPoint{
			{SensorID: "temp_supply", TS: tsp(base), Value: fp(6.8)},
		}})
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "", 5*time.Second)
	assetID := int64(42)
	series, err := client.FetchSensorHistory(context.Background(), HistoryQuery{
		AssetID:    &assetID,
		SensorTags: []string{"temp_supply", "temp_return"},
		From:       base.Add(-time.Hour),
		To:         base,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, "temp_supply", series[0].SensorTag)

	require.Equal(t, "/telemetry/assets/42/history/", gotPath)
	require.Equal(t, []string{"temp_supply", "temp_return"}, gotQuery["sensor_id"])
	require.Equal(t, []string{"1m"}, gotQuery["interval"])
}

func TestAPIClientHistoryNeedsScope(t *testing.T) {
	client := NewAPIClient("http://localhost:1", "", time.Second)
	_, err := client.FetchSensorHistory(context.Background(), HistoryQuery{})
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestAPIClientClassifiesHTTPErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "", 5*time.Second)

	// 4xx responses are rejected requests, not transient failures
	_, err := client.FetchDeviceSummaries(context.Background())
	require.Error(t, err)
	apiErr, ok := errors.AsAPIError(err)
	require.True(t, ok)
	require.False(t, apiErr.Retryable())
	require.Equal(t, http.StatusNotFound, apiErr.Code)

	// 5xx responses are retryable
	status = http.StatusInternalServerError
	_, err = client.FetchDeviceSummaries(context.Background())
	require.Error(t, err)
	apiErr, ok = errors.AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.Retryable())
}

func TestAPIClientTransportFailureIsRetryable(t *testing.T) {
	// Nothing listens here
	client := NewAPIClient("http://127.0.0.1:1", "", time.Second)
	_, err := client.FetchAlerts(context.Background())
	require.Error(t, err)
	apiErr, ok := errors.AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.Retryable())
}

func TestAPIClientToggleRule(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "", 5*time.Second)
	require.NoError(t, client.ToggleRule(context.Background(), 7, true))
	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "/alert-rules/7/", gotPath)
	require.Equal(t, map[string]bool{"enabled": true}, gotBody)
}

func TestAPIClientFetchAssetsQuery(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]models.Asset{{ID: 1, Tag: "CHILLER-001"}})
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "", 5*time.Second)
	assets, err := client.FetchAssets(context.Background(), models.AssetFilters{
		SiteID: "site-a",
		Search: "chiller",
	})
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, []string{"site-a"}, gotQuery["site_id"])
	require.Equal(t, []string{"chiller"}, gotQuery["search"])
	require.NotContains(t, gotQuery, "status")
}
