package signal

import (
	"math"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
)

const (
	earthRadiusMeters = 6371000.0

	// DefaultSimplifyEpsilon is the Douglas-Peucker tolerance in degrees
	// used for stored trip geometry (~9 m at the equator).
	DefaultSimplifyEpsilon = 0.00008
)

// Haversine returns the great-circle distance in metres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CumulativeDistance returns, for every sample, the distance in metres
// travelled from the first sample.
func CumulativeDistance(samples []model.TelemetrySample) []float64 {
	out := make([]float64, len(samples))
	for i := 1; i < len(samples); i++ {
		p, c := samples[i-1], samples[i]
		out[i] = out[i-1] + Haversine(p.Lat, p.Lon, c.Lat, c.Lon)
	}
	return out
}

// TotalDistanceKm returns the path length of the samples in kilometres.
func TotalDistanceKm(samples []model.TelemetrySample) float64 {
	if len(samples) < 2 {
		return 0
	}
	cum := CumulativeDistance(samples)
	return cum[len(cum)-1] / 1000
}

// Duration returns the time between the first and last sample.
func Duration(samples []model.TelemetrySample) time.Duration {
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].TS.Sub(samples[0].TS)
}

// TrimByDistance drops the samples that lie within the first headM and last
// tailM metres of the path. It returns a new slice.
func TrimByDistance(samples []model.ProcessedSample, headM, tailM float64) []model.ProcessedSample {
	if len(samples) == 0 {
		return nil
	}
	raw := make([]model.TelemetrySample, len(samples))
	for i := range samples {
		raw[i] = samples[i].TelemetrySample
	}
	cum := CumulativeDistance(raw)
	total := cum[len(cum)-1]

	out := make([]model.ProcessedSample, 0, len(samples))
	for i := range samples {
		if cum[i] < headM || cum[i] > total-tailM {
			continue
		}
		out = append(out, samples[i])
	}
	return out
}

// BuildGeometry returns the simplified GeoJSON path of the trip.
func BuildGeometry(samples []model.TelemetrySample, epsilon float64) model.LineString {
	points := make([][2]float64, len(samples))
	for i, s := range samples {
		points[i] = [2]float64{s.Lon, s.Lat}
	}
	return model.LineString{Type: "LineString", Coordinates: Simplify(points, epsilon)}
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm. Points are
// planar (lon, lat) pairs and epsilon is in the same units.
func Simplify(points [][2]float64, epsilon float64) [][2]float64 {
	if len(points) < 3 || epsilon <= 0 {
		out := make([][2]float64, len(points))
		copy(out, points)
		return out
	}

	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true

	type span struct{ first, last int }
	stack := []span{{0, len(points) - 1}}
	for len(stack) > 0 {
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxDist, idx := 0.0, -1
		for i := sp.first + 1; i < sp.last; i++ {
			if d := perpendicularDistance(points[i], points[sp.first], points[sp.last]); d > maxDist {
				maxDist, idx = d, i
			}
		}
		if idx >= 0 && maxDist > epsilon {
			keep[idx] = true
			stack = append(stack, span{sp.first, idx}, span{idx, sp.last})
		}
	}

	out := make([][2]float64, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func perpendicularDistance(p, a, b [2]float64) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	if dx == 0 && dy == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	return math.Abs(dy*p[0]-dx*p[1]+b[0]*a[1]-b[1]*a[0]) / math.Hypot(dx, dy)
}
