package landuse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Client queries the zoning feature service for land-use categories inside a
// buffered bounding box around the mission footprint.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	pointBufferMeters float64
	routeBufferMeters float64
	logger            *logger.Logger
}

// NewClient creates a new land-use client
func NewClient(baseURL string, timeout time.Duration, pointBufferMeters, routeBufferMeters float64, logger *logger.Logger) *Client {
	return &Client{
		baseURL:           baseURL,
		pointBufferMeters: pointBufferMeters,
		routeBufferMeters: routeBufferMeters,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("landuse-client"),
	}
}

// BufferMeters returns the bounding-box buffer for the mission footprint.
// When a SORA config defines contingency and ground-risk distances their sum
// wins; otherwise a single point gets the wide default and a route the
// narrow one.
func (c *Client) BufferMeters(points []geo.Coordinate, contingencyM, groundRiskM float64) float64 {
	if contingencyM+groundRiskM > 0 {
		return contingencyM + groundRiskM
	}
	if len(points) <= 1 {
		return c.pointBufferMeters
	}
	return c.routeBufferMeters
}

// featureResponse is the feature service's JSON payload. Category attribute
// names vary between datasets, so properties are kept loosely typed and
// resolved in categoryOf.
type featureResponse struct {
	Features []struct {
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

// candidate attribute names for the zoning category, in preference order.
var categoryFields = []string{"arealformal", "arealtype", "landuse", "category", "zone_type"}

// Classify queries zoning features inside the buffered bounding box of the
// given points and derives the ground-risk class. Malformed or empty
// responses fall back to an unevaluated low classification; callers treat an
// error the same way.
func (c *Client) Classify(ctx context.Context, points []geo.Coordinate, bufferMeters float64) (*Classification, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no coordinates to classify")
	}

	bbox := geo.BoundingBox(points, bufferMeters)

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("request", "GetFeature")
	params.Set("outputFormat", "application/json")
	params.Set("bbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Querying land-use features",
		logger.Float64("min_lat", bbox.MinLat),
		logger.Float64("max_lat", bbox.MaxLat),
		logger.Float64("buffer_m", bufferMeters))

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

	classification := &Classification{GroundRisk: RiskLow}

	var parsed featureResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some datasets answer GML even when JSON is requested. Treat as
		// unevaluated rather than failing the assessment.
		c.logger.Warn("Land-use response not parseable as JSON, using fallback classification",
			logger.Error(err))
		return classification, nil
	}

	for _, feature := range parsed.Features {
		classification.count(categoryOf(feature.Properties))
	}
	classification.Evaluated = len(parsed.Features) > 0
	classification.classify()

	c.logger.Debug("Classified land use",
		logger.String("ground_risk", classification.GroundRisk),
		logger.Int("features", len(parsed.Features)))

	return classification, nil
}

// count increments the matching category counter.
func (c *Classification) count(category string) {
	switch {
	case strings.Contains(category, "bolig") || strings.Contains(category, "residential"):
		c.Residential++
	case strings.Contains(category, "offentlig") || strings.Contains(category, "institusjon") || strings.Contains(category, "public"):
		c.Institutional++
	case strings.Contains(category, "sentrum") || strings.Contains(category, "handel") || strings.Contains(category, "commercial"):
		c.Commercial++
	case strings.Contains(category, "industri") || strings.Contains(category, "næring") || strings.Contains(category, "industrial"):
		c.Industrial++
	case strings.Contains(category, "samferdsel") || strings.Contains(category, "veg") || strings.Contains(category, "transport"):
		c.Transport++
	case strings.Contains(category, "fritid") || strings.Contains(category, "idrett") || strings.Contains(category, "recreation"):
		c.Recreational++
	}
}

// categoryOf extracts the zoning category from a feature's properties,
// trying each known attribute name.
func categoryOf(properties map[string]interface{}) string {
	for _, field := range categoryFields {
		if v, ok := properties[field]; ok {
			if s, ok := v.(string); ok {
				return strings.ToLower(s)
			}
		}
	}
	return ""
}
