package population

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

// Client queries a gridded population-count service for density values
// inside the mission's buffered bounding box. When the primary endpoint
// yields nothing parseable, exactly one alternate endpoint is tried before
// giving up.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	alternateURL string
	bufferMeters float64
	logger       *logger.Logger
}

// NewClient creates a new population-density client
func NewClient(baseURL, alternateURL string, timeout time.Duration, bufferMeters float64, logger *logger.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		alternateURL: alternateURL,
		bufferMeters: bufferMeters,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("population-cli"),
	}
}

// gridResponse is the population grid payload. The count attribute name
// varies between datasets, so cell attributes stay loosely typed.
type gridResponse struct {
	Cells    []map[string]interface{} `json:"cells"`
	Features []struct {
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

// candidate attribute names for the population count per grid cell.
var countFields = []string{"pop_tot", "population", "poptot", "total", "count", "value"}

// Query returns the density classification for the mission footprint, or an
// error when neither endpoint produced parseable values. Callers treat an
// error as absent data.
func (c *Client) Query(ctx context.Context, points []geo.Coordinate) (*Density, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no coordinates to query")
	}

	bbox := geo.BoundingBox(points, c.bufferMeters)

	density, err := c.fetch(ctx, c.baseURL, bbox)
	if err == nil {
		return density, nil
	}

	c.logger.Warn("Primary population endpoint yielded no data", logger.Error(err))

	if c.alternateURL == "" {
		return nil, err
	}

	density, altErr := c.fetch(ctx, c.alternateURL, bbox)
	if altErr != nil {
		return nil, fmt.Errorf("alternate endpoint also failed: %w", altErr)
	}
	return density, nil
}

func (c *Client) fetch(ctx context.Context, baseURL string, bbox geo.BBox) (*Density, error) {
	params := url.Values{}
	params.Set("bbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bbox.MinLng, bbox.MinLat, bbox.MaxLng, bbox.MaxLat))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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

	var parsed gridResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	values := extractCounts(&parsed)
	if len(values) == 0 {
		return nil, fmt.Errorf("no parseable density values in response")
	}

	maxDensity := values[0]
	sum := 0.0
	for _, v := range values {
		if v > maxDensity {
			maxDensity = v
		}
		sum += v
	}

	impact, increment := ClassifyDensity(maxDensity)
	density := &Density{
		MaxDensity:   maxDensity,
		AvgDensity:   sum / float64(len(values)),
		Impact:       impact,
		GRCIncrement: increment,
		CellCount:    len(values),
	}

	c.logger.Debug("Fetched population density",
		logger.Float64("max", density.MaxDensity),
		logger.Float64("avg", density.AvgDensity),
		logger.String("impact", density.Impact))

	return density, nil
}

// extractCounts pulls numeric density values out of whichever grid shape the
// service answered with.
func extractCounts(parsed *gridResponse) []float64 {
	var values []float64

	appendCount := func(attrs map[string]interface{}) {
		for _, field := range countFields {
			if raw, ok := attrs[field]; ok {
				switch v := raw.(type) {
				case float64:
					values = append(values, v)
					return
				case string:
					var f float64
					if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
						values = append(values, f)
						return
					}
				}
			}
		}
	}

	for _, cell := range parsed.Cells {
		appendCount(cell)
	}
	for _, feature := range parsed.Features {
		appendCount(feature.Properties)
	}

	return values
}
