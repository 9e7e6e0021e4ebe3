package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Client fetches current conditions for a coordinate. One request per
// assessment, no retry: a failed fetch degrades to absent weather data.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new weather client
func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("weather-client"),
	}
}

// Fetch returns the current conditions at the given coordinate. Any
// non-success response or timeout is returned as an error; callers treat it
// as absent data, never as a fatal failure.
func (c *Client) Fetch(ctx context.Context, coord geo.Coordinate) (*Snapshot, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.5f", coord.Lat))
	params.Set("longitude", fmt.Sprintf("%.5f", coord.Lng))
	params.Set("current", "temperature_2m,wind_speed_10m,wind_gusts_10m,visibility,precipitation")
	params.Set("hourly", "wind_speed_10m")
	params.Set("forecast_days", "1")
	params.Set("wind_speed_unit", "ms")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching weather data",
		logger.Float64("lat", coord.Lat),
		logger.Float64("lng", coord.Lng))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed currentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	snapshot := &Snapshot{}
	if parsed.Current.TemperatureC != nil {
		snapshot.TemperatureC = *parsed.Current.TemperatureC
	}
	if parsed.Current.WindSpeedMS != nil {
		snapshot.WindSpeedMS = *parsed.Current.WindSpeedMS
	}
	if parsed.Current.WindGustMS != nil {
		snapshot.WindGustMS = *parsed.Current.WindGustMS
	}
	if parsed.Current.VisibilityM != nil {
		snapshot.VisibilityKM = *parsed.Current.VisibilityM / 1000
	}
	if parsed.Current.PrecipitationMM != nil {
		snapshot.PrecipitationMM = *parsed.Current.PrecipitationMM
	}

	snapshot.Recommendation = recommendationFor(snapshot)
	snapshot.BestWindow = bestWindow(parsed.Hourly.Time, parsed.Hourly.WindSpeedMS)

	c.logger.Debug("Fetched weather data",
		logger.Float64("wind_ms", snapshot.WindSpeedMS),
		logger.Float64("gust_ms", snapshot.WindGustMS),
		logger.Float64("visibility_km", snapshot.VisibilityKM))

	return snapshot, nil
}

// recommendationFor derives a coarse flyability hint from the snapshot.
func recommendationFor(s *Snapshot) string {
	switch {
	case s.WindSpeedMS > 10 || s.WindGustMS > 15 || s.PrecipitationMM > 2:
		return "Ugunstige forhold - vurder å utsette oppdraget"
	case s.WindSpeedMS > 7 || s.PrecipitationMM > 0.2:
		return "Marginale forhold - fly med forsiktighet"
	default:
		return "Gode flyforhold"
	}
}

// bestWindow finds the calmest two-hour stretch in the hourly forecast.
// Returns an empty string when the forecast is too short.
func bestWindow(times []string, winds []float64) string {
	n := len(winds)
	if len(times) < n {
		n = len(times)
	}
	if n < 2 {
		return ""
	}

	bestIdx := 0
	bestAvg := winds[0] + winds[1]
	for i := 1; i < n-1; i++ {
		avg := winds[i] + winds[i+1]
		if avg < bestAvg {
			bestAvg = avg
			bestIdx = i
		}
	}

	return fmt.Sprintf("%s - %s", times[bestIdx], times[bestIdx+1])
}
