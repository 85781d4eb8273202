package signal_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/signal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMovingAverage(t *testing.T) {
	Convey("Given a short sequence", t, func() {
		values := []float64{1, 2, 3, 4, 10}

		Convey("When smoothing with a window of 3", func() {
			out := signal.MovingAverage(values, 3)

			Convey("Then the window is clipped at the bounds", func() {
				So(out[0], ShouldAlmostEqual, 1.5)
				So(out[1], ShouldAlmostEqual, 2.0)
				So(out[2], ShouldAlmostEqual, 3.0)
				So(out[3], ShouldAlmostEqual, 17.0/3.0)
				So(out[4], ShouldAlmostEqual, 7.0)
			})

			Convey("And the input is untouched", func() {
				So(values, ShouldResemble, []float64{1, 2, 3, 4, 10})
			})
		})

		Convey("When the window is 1", func() {
			So(signal.MovingAverage(values, 1), ShouldResemble, values)
		})
	})
}

func TestPreprocess(t *testing.T) {
	Convey("Given samples with a constant forward acceleration", t, func() {
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		raw := make([]model.TelemetrySample, 3)
		for i := range raw {
			raw[i] = model.TelemetrySample{
				TS:    base.Add(time.Duration(i) * 100 * time.Millisecond),
				Accel: &model.Accel{X: 2, Y: 0},
			}
		}

		Convey("When the heading is absent", func() {
			out := signal.Preprocess(raw, signal.DefaultWindow)

			Convey("Then the x axis maps to the longitudinal axis", func() {
				So(out, ShouldHaveLength, 3)
				So(out[1].AccelLong, ShouldAlmostEqual, 2)
				So(out[1].AccelLat, ShouldAlmostEqual, 0)
			})

			Convey("And smoothed and projected values are the same pass", func() {
				for _, s := range out {
					So(s.AccelLongSmooth, ShouldEqual, s.AccelLong)
					So(s.AccelLatSmooth, ShouldEqual, s.AccelLat)
				}
			})
		})

		Convey("When the heading is 90 degrees", func() {
			for i := range raw {
				raw[i].HeadingDeg = model.Float64Ptr(90)
			}
			out := signal.Preprocess(raw, signal.DefaultWindow)

			Convey("Then the x axis maps to negative lateral", func() {
				So(out[0].AccelLong, ShouldAlmostEqual, 0, 1e-9)
				So(out[0].AccelLat, ShouldAlmostEqual, -2, 1e-9)
			})
		})

		Convey("When a sample has no accelerometer reading", func() {
			raw[1].Accel = nil
			out := signal.Preprocess(raw, signal.DefaultWindow)

			Convey("Then it contributes zero to its neighbours", func() {
				So(out[0].AccelLong, ShouldAlmostEqual, 1)
				So(raw[0].Accel.X, ShouldEqual, 2)
			})
		})
	})
}

func TestGeometry(t *testing.T) {
	Convey("Given a straight northbound path", t, func() {
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		// 0.001 degrees of latitude is roughly 111 m.
		raw := make([]model.TelemetrySample, 11)
		for i := range raw {
			raw[i] = model.TelemetrySample{
				TS:  base.Add(time.Duration(i) * 10 * time.Second),
				Lat: 52.0 + float64(i)*0.001,
				Lon: 13.0,
			}
		}

		Convey("Then distance and duration follow the samples", func() {
			So(signal.TotalDistanceKm(raw), ShouldAlmostEqual, 1.112, 0.01)
			So(signal.Duration(raw), ShouldEqual, 100*time.Second)
		})

		Convey("When trimming 200 m from both ends", func() {
			processed := signal.Preprocess(raw, signal.DefaultWindow)
			trimmed := signal.TrimByDistance(processed, 200, 200)

			Convey("Then only the middle samples remain", func() {
				So(len(trimmed), ShouldBeLessThan, len(processed))
				first := trimmed[0].Lat - 52.0
				last := 52.01 - trimmed[len(trimmed)-1].Lat
				So(first, ShouldBeGreaterThanOrEqualTo, 0.0018)
				So(last, ShouldBeGreaterThanOrEqualTo, 0.0018)
			})
		})

		Convey("When building the geometry", func() {
			g := signal.BuildGeometry(raw, signal.DefaultSimplifyEpsilon)

			Convey("Then collinear points collapse to the endpoints", func() {
				So(g.Type, ShouldEqual, "LineString")
				So(g.Coordinates, ShouldHaveLength, 2)
				So(g.Coordinates[0], ShouldResemble, [2]float64{13.0, 52.0})
			})
		})
	})

	Convey("Given a path with a corner", t, func() {
		points := [][2]float64{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}}

		Convey("Then the corner is kept", func() {
			So(signal.Simplify(points, 0.1), ShouldResemble, [][2]float64{{0, 0}, {2, 0}, {2, 2}})
		})
	})

	Convey("Given two points one degree of longitude apart on the equator", t, func() {
		d := signal.Haversine(0, 0, 0, 1)

		Convey("Then the distance is about 111.19 km", func() {
			So(math.Abs(d-111195), ShouldBeLessThan, 10)
		})
	})
}
