package quality_test

import (
	"testing"

	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
	. "github.com/smartystreets/goconvey/convey"
)

func sample(speedMPS float64, hdop, conf *float64) model.ProcessedSample {
	return model.ProcessedSample{
		TelemetrySample: model.TelemetrySample{SpeedMPS: speedMPS, HDOP: hdop},
		MapMatchConf:    conf,
	}
}

func TestPasses(t *testing.T) {
	Convey("Given the default gates", t, func() {
		g := quality.DefaultGates()

		Convey("When a moving sample has no optional fields", func() {
			s := sample(5, nil, nil)

			Convey("Then it passes", func() {
				So(quality.Passes(&s, g), ShouldBeTrue)
			})
		})

		Convey("When the sample is slower than 10 km/h", func() {
			s := sample(2.7, nil, nil) // 9.72 km/h

			Convey("Then it fails", func() {
				So(quality.Passes(&s, g), ShouldBeFalse)
			})
		})

		Convey("When HDOP exceeds the maximum", func() {
			s := sample(10, model.Float64Ptr(1.6), nil)

			Convey("Then it fails", func() {
				So(quality.Passes(&s, g), ShouldBeFalse)
			})
		})

		Convey("When HDOP equals the maximum", func() {
			s := sample(10, model.Float64Ptr(1.5), nil)

			Convey("Then it passes", func() {
				So(quality.Passes(&s, g), ShouldBeTrue)
			})
		})

		Convey("When map-match confidence is below the minimum", func() {
			s := sample(10, nil, model.Float64Ptr(0.59))

			Convey("Then it fails", func() {
				So(quality.Passes(&s, g), ShouldBeFalse)
			})
		})
	})
}

func TestRatio(t *testing.T) {
	Convey("Given a mix of samples", t, func() {
		g := quality.DefaultGates()
		samples := []model.ProcessedSample{
			sample(0, nil, nil), // stationary, still positionally trusted
			sample(10, model.Float64Ptr(3), nil),
			sample(10, nil, model.Float64Ptr(0.9)),
			sample(10, nil, model.Float64Ptr(0.1)),
		}

		Convey("Then the ratio ignores the speed check", func() {
			So(quality.Ratio(samples, g), ShouldEqual, 0.5)
		})

		Convey("And an empty trip has ratio zero", func() {
			So(quality.Ratio(nil, g), ShouldEqual, 0)
		})
	})
}
