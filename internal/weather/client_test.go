package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

func TestFetchParsesCurrentConditions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ms", r.URL.Query().Get("wind_speed_unit"))
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"current": {
				"temperature_2m": 12.5,
				"wind_speed_10m": 4.2,
				"wind_gusts_10m": 7.8,
				"visibility": 24000,
				"precipitation": 0
			},
			"hourly": {
				"time": ["2026-08-31T10:00", "2026-08-31T11:00", "2026-08-31T12:00", "2026-08-31T13:00"],
				"wind_speed_10m": [6.0, 3.0, 2.0, 8.0]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	snapshot, err := client.Fetch(context.Background(), geo.Coordinate{Lat: 59.91, Lng: 10.75})
	require.NoError(t, err)

	assert.Equal(t, 12.5, snapshot.TemperatureC)
	assert.Equal(t, 4.2, snapshot.WindSpeedMS)
	assert.Equal(t, 7.8, snapshot.WindGustMS)
	assert.Equal(t, 24.0, snapshot.VisibilityKM)
	assert.False(t, snapshot.Skipped)
	assert.Equal(t, "Gode flyforhold", snapshot.Recommendation)

	// Calmest two-hour stretch is 11:00-12:00 (3.0 + 2.0).
	assert.Equal(t, "2026-08-31T11:00 - 2026-08-31T12:00", snapshot.BestWindow)
}

func TestFetchToleratesMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current": {"wind_speed_10m": 11.0}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	snapshot, err := client.Fetch(context.Background(), geo.Coordinate{Lat: 59.91, Lng: 10.75})
	require.NoError(t, err)

	assert.Equal(t, 11.0, snapshot.WindSpeedMS)
	assert.Zero(t, snapshot.VisibilityKM)
	assert.Empty(t, snapshot.BestWindow)
	assert.Contains(t, snapshot.Recommendation, "Ugunstige")
}

func TestFetchErrorsOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	_, err := client.Fetch(context.Background(), geo.Coordinate{Lat: 59.91, Lng: 10.75})
	assert.Error(t, err)
}

func TestRecommendationTiers(t *testing.T) {
	assert.Contains(t, recommendationFor(&Snapshot{WindSpeedMS: 3}), "Gode")
	assert.Contains(t, recommendationFor(&Snapshot{WindSpeedMS: 8}), "Marginale")
	assert.Contains(t, recommendationFor(&Snapshot{PrecipitationMM: 0.5}), "Marginale")
	assert.Contains(t, recommendationFor(&Snapshot{WindGustMS: 16}), "Ugunstige")
}

func TestSkippedSnapshot(t *testing.T) {
	snapshot := SkippedSnapshot()
	assert.True(t, snapshot.Skipped)
	assert.NotEmpty(t, snapshot.Recommendation)
	assert.Zero(t, snapshot.WindSpeedMS)
}
