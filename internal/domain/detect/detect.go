// Package detect finds harsh driving, speeding and distraction events in a
// trip's processed samples.
package detect

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/drivescore/internal/domain/model"
	"github.com/okian/drivescore/internal/domain/quality"
	"github.com/okian/drivescore/internal/domain/segment"
	"github.com/okian/drivescore/internal/domain/signal"
)

// Detector runs the event detectors. It holds configuration only and is safe
// for concurrent use.
type Detector struct {
	gates quality.Gates
	th    Thresholds
}

// NewDetector creates a Detector with the default gates and thresholds.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		gates: quality.DefaultGates(),
		th:    DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectAll runs every detector with the default thresholds.
func DetectAll(samples []model.ProcessedSample, gates quality.Gates) []model.DetectedEvent {
	return NewDetector(WithGates(gates)).All(samples)
}

// All runs every detector and returns the union sorted by start time.
func (d *Detector) All(samples []model.ProcessedSample) []model.DetectedEvent {
	var events []model.DetectedEvent
	events = append(events, d.HarshBrakes(samples)...)
	events = append(events, d.HarshAccels(samples)...)
	events = append(events, d.HarshCorners(samples)...)
	for _, bucket := range d.th.SpeedingBucketsMph {
		events = append(events, d.Speeding(samples, bucket)...)
	}
	events = append(events, d.Distractions(samples)...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TSStart.Before(events[j].TSStart)
	})
	return events
}

// HarshBrakes flags sustained longitudinal deceleration.
func (d *Detector) HarshBrakes(samples []model.ProcessedSample) []model.DetectedEvent {
	limit := d.th.HarshBrakeMPS2
	segs := d.segments(samples, d.th.HarshBrakeMinDuration, true, func(s *model.ProcessedSample) bool {
		return s.AccelLongSmooth < limit
	})
	return buildEvents(samples, segs, model.EventHarshBrake, func(seg segment.Segment) (float64, map[string]any) {
		peak := math.Inf(1)
		for _, i := range seg {
			peak = math.Min(peak, samples[i].AccelLongSmooth)
		}
		severity := math.Min(math.Abs(peak-limit)/accelSeverityRange, 1)
		return severity, map[string]any{
			"peak_accel_mps2": peak,
			"threshold_mps2":  limit,
		}
	})
}

// HarshAccels flags sustained longitudinal acceleration.
func (d *Detector) HarshAccels(samples []model.ProcessedSample) []model.DetectedEvent {
	limit := d.th.HarshAccelMPS2
	segs := d.segments(samples, d.th.HarshAccelMinDuration, true, func(s *model.ProcessedSample) bool {
		return s.AccelLongSmooth > limit
	})
	return buildEvents(samples, segs, model.EventHarshAccel, func(seg segment.Segment) (float64, map[string]any) {
		peak := math.Inf(-1)
		for _, i := range seg {
			peak = math.Max(peak, samples[i].AccelLongSmooth)
		}
		severity := math.Min((peak-limit)/accelSeverityRange, 1)
		return severity, map[string]any{
			"peak_accel_mps2": peak,
			"threshold_mps2":  limit,
		}
	})
}

// HarshCorners flags sustained lateral acceleration. Motorways use a higher
// threshold.
func (d *Detector) HarshCorners(samples []model.ProcessedSample) []model.DetectedEvent {
	segs := d.segments(samples, d.th.HarshCornerMinDuration, true, func(s *model.ProcessedSample) bool {
		return math.Abs(signal.ToG(s.AccelLatSmooth)) > d.cornerThreshold(s)
	})
	return buildEvents(samples, segs, model.EventHarshCorner, func(seg segment.Segment) (float64, map[string]any) {
		peak, threshold, roadClass := math.Inf(-1), d.th.HarshCornerG, ""
		for _, i := range seg {
			if g := math.Abs(signal.ToG(samples[i].AccelLatSmooth)); g > peak {
				peak = g
				threshold = d.cornerThreshold(&samples[i])
				roadClass = samples[i].RoadClass
			}
		}
		severity := math.Min((peak-threshold)/threshold, 1)
		return severity, map[string]any{
			"peak_g":      peak,
			"threshold_g": threshold,
			"road_class":  roadClass,
		}
	})
}

// Speeding flags sustained driving at least bucketMph over the posted limit.
// Each bucket segments independently, so one interval can raise events in
// several buckets with different boundaries.
func (d *Detector) Speeding(samples []model.ProcessedSample, bucketMph float64) []model.DetectedEvent {
	eventType := speedingType(bucketMph)
	segs := d.segments(samples, d.th.SpeedingMinDuration, true, func(s *model.ProcessedSample) bool {
		if s.SpeedLimitMPS == nil {
			return false
		}
		return signal.MPSToMPH(s.SpeedMPS) >= signal.MPSToMPH(*s.SpeedLimitMPS)+bucketMph
	})
	return buildEvents(samples, segs, eventType, func(seg segment.Segment) (float64, map[string]any) {
		maxExcess, limitMph, maxSpeed := math.Inf(-1), 0.0, 0.0
		for _, i := range seg {
			speed := signal.MPSToMPH(samples[i].SpeedMPS)
			limit := signal.MPSToMPH(*samples[i].SpeedLimitMPS)
			if excess := speed - limit; excess > maxExcess {
				maxExcess, limitMph = excess, limit
			}
			maxSpeed = math.Max(maxSpeed, speed)
		}
		severity := math.Min((maxExcess-bucketMph)/bucketMph, 1)
		return severity, map[string]any{
			"max_excess_mph":  maxExcess,
			"bucket_mph":      bucketMph,
			"speed_limit_mph": limitMph,
			"max_speed_mph":   maxSpeed,
		}
	})
}

// Distractions flags screen-on intervals. There is no minimum duration; only
// debouncing applies, so a single screen-on sample yields an event without
// an end time.
func (d *Detector) Distractions(samples []model.ProcessedSample) []model.DetectedEvent {
	segs := d.segments(samples, 0, false, func(s *model.ProcessedSample) bool {
		return s.ScreenOn != nil && *s.ScreenOn
	})
	ts := timeOf(samples)
	return buildEvents(samples, segs, model.EventDistraction, func(seg segment.Segment) (float64, map[string]any) {
		seconds := segment.Span(seg, ts).Seconds()
		return math.Min(seconds/distractionFullSecond, 1), map[string]any{
			"duration_s": seconds,
		}
	})
}

func (d *Detector) cornerThreshold(s *model.ProcessedSample) float64 {
	if s.RoadClass == roadClassMotorway {
		return d.th.HarshCornerMotorwayG
	}
	return d.th.HarshCornerG
}

// segments applies the shared pipeline: gate and threshold predicate, group,
// optional duration filter, then debounce.
func (d *Detector) segments(
	samples []model.ProcessedSample,
	minDuration time.Duration,
	filter bool,
	threshold func(*model.ProcessedSample) bool,
) []segment.Segment {
	ts := timeOf(samples)
	segs := segment.GroupConsecutive(len(samples), func(i int) bool {
		s := &samples[i]
		return quality.Passes(s, d.gates) && threshold(s)
	})
	if filter {
		segs = segment.FilterByDuration(segs, ts, minDuration)
	}
	return segment.Debounce(segs, ts, d.th.DebounceGap)
}

type measureFunc func(seg segment.Segment) (severity float64, metadata map[string]any)

func buildEvents(
	samples []model.ProcessedSample,
	segs []segment.Segment,
	eventType model.EventType,
	measure measureFunc,
) []model.DetectedEvent {
	ts := timeOf(samples)
	events := make([]model.DetectedEvent, 0, len(segs))
	for _, seg := range segs {
		severity, meta := measure(seg)
		mid := samples[seg.Middle()]
		ev := model.DetectedEvent{
			Type:     eventType,
			TSStart:  samples[seg.First()].TS,
			Severity: math.Max(severity, 0),
			Lat:      mid.Lat,
			Lon:      mid.Lon,
			Metadata: meta,
		}
		if len(seg) >= 2 {
			end := samples[seg.Last()].TS
			ev.TSEnd = &end
		}
		meta["duration_ms"] = segment.Span(seg, ts).Milliseconds()
		meta["sample_count"] = len(seg)
		events = append(events, ev)
	}
	return events
}

func timeOf(samples []model.ProcessedSample) segment.TimeFunc {
	return func(i int) time.Time { return samples[i].TS }
}

func speedingType(bucketMph float64) model.EventType {
	switch bucketMph {
	case 5:
		return model.EventSpeeding5
	case 10:
		return model.EventSpeeding10
	case 20:
		return model.EventSpeeding20
	default:
		return model.EventType(fmt.Sprintf("speeding_%g", bucketMph))
	}
}
