package airspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

func TestQueryWrappedResponseSortedBySeverity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Point geo.Coordinate   `json:"point"`
			Route []geo.Coordinate `json:"route"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 59.91, body.Point.Lat)
		assert.Len(t, body.Route, 2)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"zones":[
			{"type":"RMZ", "name":"Kjeller", "distance_km": 4.2, "severity":"note"},
			{"type":"CTR", "name":"Oslo CTR", "distance_km": 1.1, "intersects": true, "severity":"warning"},
			{"type":"NSM", "name":"Restricted", "distance_km": 8.0, "severity":"caution"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	route := []geo.Coordinate{{Lat: 59.91, Lng: 10.75}, {Lat: 59.92, Lng: 10.76}}
	warnings, err := client.Query(context.Background(), route[0], route)
	require.NoError(t, err)

	require.Len(t, warnings, 3)
	assert.Equal(t, SeverityWarning, warnings[0].Severity)
	assert.Equal(t, "Oslo CTR", warnings[0].ZoneName)
	assert.True(t, warnings[0].Intersects)
	assert.Equal(t, SeverityCaution, warnings[1].Severity)
	assert.Equal(t, SeverityNote, warnings[2].Severity)
}

func TestQueryBareArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"type":"TIZ", "name":"Torp", "distance_km": 12.0, "severity":"note"}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	warnings, err := client.Query(context.Background(), geo.Coordinate{Lat: 59.18, Lng: 10.25}, nil)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, "TIZ", warnings[0].ZoneType)
}

func TestQueryUnknownSeverityBecomesNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"zones":[{"type":"X", "name":"Weird", "severity":"catastrophic"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	warnings, err := client.Query(context.Background(), geo.Coordinate{Lat: 59.91, Lng: 10.75}, nil)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, SeverityNote, warnings[0].Severity)
}

func TestQueryErrorsOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, logger.NewNop())

	_, err := client.Query(context.Background(), geo.Coordinate{Lat: 59.91, Lng: 10.75}, nil)
	assert.Error(t, err)
}
