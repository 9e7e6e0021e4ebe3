package airspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Client queries the airspace zone service for warnings near a mission's
// coordinate and route. A failed query degrades to no warnings.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new airspace client
func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("airspace-client"),
	}
}

type zoneQuery struct {
	Point geo.Coordinate   `json:"point"`
	Route []geo.Coordinate `json:"route,omitempty"`
}

// zoneResponse tolerates both a bare array and a wrapped {"zones": [...]}
// payload from the service.
type zoneResponse struct {
	Zones []zoneFeature `json:"zones"`
}

type zoneFeature struct {
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	DistanceKM float64 `json:"distance_km"`
	Intersects bool    `json:"intersects"`
	Severity   string  `json:"severity"`
}

// Query returns zone warnings for the mission footprint sorted most severe
// first. Callers treat an error as an empty warning list.
func (c *Client) Query(ctx context.Context, point geo.Coordinate, route []geo.Coordinate) ([]Warning, error) {
	payload, err := json.Marshal(zoneQuery{Point: point, Route: route})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal zone query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Querying airspace zones",
		logger.Float64("lat", point.Lat),
		logger.Float64("lng", point.Lng),
		logger.Int("route_points", len(route)))

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

	var features []zoneFeature
	var wrapped zoneResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Zones != nil {
		features = wrapped.Zones
	} else if err := json.Unmarshal(body, &features); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	warnings := make([]Warning, 0, len(features))
	for _, f := range features {
		severity := f.Severity
		if severityRank(severity) > 2 {
			severity = SeverityNote
		}
		warnings = append(warnings, Warning{
			ZoneType:   f.Type,
			ZoneName:   f.Name,
			DistanceKM: f.DistanceKM,
			Intersects: f.Intersects,
			Severity:   severity,
		})
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return severityRank(warnings[i].Severity) < severityRank(warnings[j].Severity)
	})

	c.logger.Debug("Fetched airspace warnings", logger.Int("count", len(warnings)))

	return warnings, nil
}
