package simulator

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/drivescore/internal/domain/detect"
	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/signal"
	. "github.com/smartystreets/goconvey/convey"
)

var tripStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func detectEvents(trip Trip) map[model.EventType]int {
	raw := make([]model.TelemetrySample, len(trip.Samples))
	for i, s := range trip.Samples {
		ts, err := time.Parse(time.RFC3339, s.TS)
		So(err, ShouldBeNil)
		raw[i] = model.TelemetrySample{
			TS:         ts,
			Lat:        s.Lat,
			Lon:        s.Lon,
			SpeedMPS:   s.SpeedMPS,
			HeadingDeg: model.Float64Ptr(s.HeadingDeg),
			HDOP:       model.Float64Ptr(s.HDOP),
			Accel:      &model.Accel{X: s.Accel.AX, Y: s.Accel.AY, Z: s.Accel.AZ},
			ScreenOn:   &s.ScreenOn,
		}
	}
	counts := map[model.EventType]int{}
	for _, e := range detect.NewDetector().All(signal.Preprocess(raw, signal.DefaultWindow)) {
		counts[e.Type]++
	}
	return counts
}

func TestGenerateTrip(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		rng := func() *rand.Rand { return rand.New(rand.NewPCG(7, 1)) }

		Convey("When generating a calm trip", func() {
			trip := GenerateTrip(rng(), ProfileCalm, tripStart, 10)

			Convey("Then it has one sample per second", func() {
				So(trip.Samples, ShouldHaveLength, 600)
				So(trip.Samples[0].TS, ShouldEqual, "2024-05-01T12:00:00Z")
				So(trip.Samples[599].TS, ShouldEqual, "2024-05-01T12:09:59Z")
			})

			Convey("And every sample passes the quality gates", func() {
				for _, s := range trip.Samples {
					So(s.SpeedMPS, ShouldBeGreaterThanOrEqualTo, minSpeedMPS)
					So(s.HDOP, ShouldBeLessThan, 1.5)
					So(s.HeadingDeg, ShouldBeBetweenOrEqual, 0, 360)
				}
			})

			Convey("And the detector finds nothing", func() {
				So(detectEvents(trip), ShouldBeEmpty)
			})
		})

		Convey("When generating the same trip twice", func() {
			a := GenerateTrip(rng(), ProfileAggressive, tripStart, 5)
			b := GenerateTrip(rng(), ProfileAggressive, tripStart, 5)

			Convey("Then the output is identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When generating an aggressive trip", func() {
			trip := GenerateTrip(rng(), ProfileAggressive, tripStart, 12)
			counts := detectEvents(trip)

			Convey("Then harsh maneuvers are detected", func() {
				harsh := counts[model.EventHarshBrake] + counts[model.EventHarshAccel] + counts[model.EventHarshCorner]
				So(harsh, ShouldBeGreaterThan, 0)
				So(harsh, ShouldBeLessThanOrEqualTo, 7)
				So(counts[model.EventDistraction], ShouldEqual, 0)
			})
		})

		Convey("When generating a distracted trip", func() {
			trip := GenerateTrip(rng(), ProfileDistracted, tripStart, 12)

			Convey("Then screen use is detected", func() {
				So(detectEvents(trip)[model.EventDistraction], ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestBatches(t *testing.T) {
	Convey("Given 250 samples", t, func() {
		samples := make([]Sample, 250)

		Convey("When split by 100", func() {
			batches := Batches(samples, 100)

			Convey("Then the last batch holds the remainder", func() {
				So(batches, ShouldHaveLength, 3)
				So(batches[2], ShouldHaveLength, 50)
			})
		})

		Convey("When the size is not positive", func() {
			So(Batches(samples, 0), ShouldHaveLength, 1)
		})
	})
}
