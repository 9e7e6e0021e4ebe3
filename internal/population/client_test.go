package population

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

func TestClassifyDensity(t *testing.T) {
	tests := []struct {
		density   float64
		impact    string
		increment int
	}{
		{0, ImpactNone, 0},
		{99, ImpactNone, 0},
		{100, ImpactModerate, 0},
		{499, ImpactModerate, 0},
		{500, ImpactHigh, 1},
		{1499, ImpactHigh, 1},
		{1500, ImpactVeryHigh, 2},
		{25000, ImpactVeryHigh, 2},
	}

	for _, tt := range tests {
		impact, increment := ClassifyDensity(tt.density)
		assert.Equal(t, tt.impact, impact, "density=%v", tt.density)
		assert.Equal(t, tt.increment, increment, "density=%v", tt.density)
	}
}

func testPoints() []geo.Coordinate {
	return []geo.Coordinate{{Lat: 59.91, Lng: 10.75}}
}

func TestQueryCellsShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("bbox"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cells":[{"pop_tot":120},{"pop_tot":1800},{"pop_tot":40}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 1000, logger.NewNop())

	density, err := client.Query(context.Background(), testPoints())
	require.NoError(t, err)

	assert.Equal(t, 1800.0, density.MaxDensity)
	assert.InDelta(t, (120.0+1800.0+40.0)/3, density.AvgDensity, 1e-9)
	assert.Equal(t, ImpactVeryHigh, density.Impact)
	assert.Equal(t, 2, density.GRCIncrement)
	assert.Equal(t, 3, density.CellCount)
}

func TestQueryFeaturesShapeAndStringCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[{"properties":{"population":"650"}},{"properties":{"value":200}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 1000, logger.NewNop())

	density, err := client.Query(context.Background(), testPoints())
	require.NoError(t, err)

	assert.Equal(t, 650.0, density.MaxDensity)
	assert.Equal(t, ImpactHigh, density.Impact)
	assert.Equal(t, 2, density.CellCount)
}

func TestQueryFallsBackToAlternateEndpoint(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	alternateCalls := 0
	alternate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alternateCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cells":[{"pop_tot":50}]}`))
	}))
	defer alternate.Close()

	client := NewClient(primary.URL, alternate.URL, 5*time.Second, 1000, logger.NewNop())

	density, err := client.Query(context.Background(), testPoints())
	require.NoError(t, err)
	assert.Equal(t, 1, alternateCalls)
	assert.Equal(t, ImpactNone, density.Impact)
}

func TestQueryErrorsWhenBothEndpointsFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	client := NewClient(failing.URL, failing.URL, 5*time.Second, 1000, logger.NewNop())

	_, err := client.Query(context.Background(), testPoints())
	assert.Error(t, err)
}

func TestQueryErrorsOnEmptyGrid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cells":[{"irrelevant":1}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 1000, logger.NewNop())

	_, err := client.Query(context.Background(), testPoints())
	assert.Error(t, err)
}

func TestQueryRequiresCoordinates(t *testing.T) {
	client := NewClient("http://unused.invalid", "", time.Second, 1000, logger.NewNop())

	_, err := client.Query(context.Background(), nil)
	assert.Error(t, err)
}
