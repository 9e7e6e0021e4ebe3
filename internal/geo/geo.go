package geo

import "math"

const (
	earthRadiusKM = 6371.0

	// Meters per degree of latitude, and per degree of longitude at the
	// equator. Longitude degrees shrink with cos(latitude).
	metersPerDegree = 111320.0
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// BoundingBox computes the bounding box of the given points expanded by
// bufferMeters in both axes. The meter buffer is converted to degrees using a
// constant latitude scale and a latitude-dependent longitude scale evaluated
// at the average latitude of the input. Points must not be empty; callers
// guard the empty case.
func BoundingBox(points []Coordinate, bufferMeters float64) BBox {
	minLat, maxLat := points[0].Lat, points[0].Lat
	minLng, maxLng := points[0].Lng, points[0].Lng
	avgLat := 0.0

	for _, p := range points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLng = math.Min(minLng, p.Lng)
		maxLng = math.Max(maxLng, p.Lng)
		avgLat += p.Lat
	}
	avgLat /= float64(len(points))

	latBuffer := bufferMeters / metersPerDegree
	lngBuffer := bufferMeters / (metersPerDegree * math.Cos(avgLat*math.Pi/180))

	return BBox{
		MinLat: minLat - latBuffer,
		MaxLat: maxLat + latBuffer,
		MinLng: minLng - lngBuffer,
		MaxLng: maxLng + lngBuffer,
	}
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKM * c
}

// RouteLengthKm accumulates the haversine distance along an ordered sequence
// of waypoints. Returns 0 for fewer than two points.
func RouteLengthKm(points []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}
