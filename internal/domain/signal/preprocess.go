// Package signal turns raw device samples into road-frame acceleration and
// provides the trip geometry helpers the pipeline needs.
package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/drivescore/internal/domain/model"
)

// DefaultWindow is the moving-average window applied to the raw axes.
const DefaultWindow = 3

const degToRad = math.Pi / 180

// MovingAverage applies a centered moving-average filter. The window is
// clipped at the sequence bounds rather than padded. Even windows are widened
// to the next odd size so the filter stays centered.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 1 {
		window = 1
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2
	for i := range values {
		start := max(0, i-half)
		end := min(len(values), i+half+1)
		out[i] = stat.Mean(values[start:end], nil)
	}
	return out
}

// Preprocess smooths the raw x/y accelerometer axes across the whole trip and
// rotates them by heading into the longitudinal/lateral road frame. It
// returns a new slice; raw is not modified. Samples without an accelerometer
// reading contribute zero on both axes; a missing heading is treated as 0.
func Preprocess(raw []model.TelemetrySample, window int) []model.ProcessedSample {
	xs := make([]float64, len(raw))
	ys := make([]float64, len(raw))
	for i := range raw {
		if a := raw[i].Accel; a != nil {
			xs[i] = a.X
			ys[i] = a.Y
		}
	}
	xs = MovingAverage(xs, window)
	ys = MovingAverage(ys, window)

	out := make([]model.ProcessedSample, len(raw))
	for i := range raw {
		h := 0.0
		if raw[i].HeadingDeg != nil {
			h = *raw[i].HeadingDeg * degToRad
		}
		long, lat := RotateToRoadFrame(xs[i], ys[i], h)
		// Projection runs on the smoothed axes, so the raw and smoothed
		// road-frame values are the same single-pass result.
		out[i] = model.ProcessedSample{
			TelemetrySample: raw[i],
			AccelLong:       long,
			AccelLat:        lat,
			AccelLongSmooth: long,
			AccelLatSmooth:  lat,
		}
	}
	return out
}

// RotateToRoadFrame projects (ax, ay) onto the travel direction given by the
// heading in radians.
func RotateToRoadFrame(ax, ay, heading float64) (long, lat float64) {
	sin, cos := math.Sincos(heading)
	long = ax*cos + ay*sin
	lat = -ax*sin + ay*cos
	return long, lat
}
