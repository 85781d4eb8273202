package model

import "time"

// EventType names a detected driving behaviour.
type EventType string

// Event types produced by the detectors.
const (
	EventHarshBrake  EventType = "harsh_brake"
	EventHarshAccel  EventType = "harsh_accel"
	EventHarshCorner EventType = "harsh_corner"
	EventSpeeding5   EventType = "speeding_5"
	EventSpeeding10  EventType = "speeding_10"
	EventSpeeding20  EventType = "speeding_20"
	EventDistraction EventType = "distraction"
)

// EventTypes lists every event type in detector order.
var EventTypes = []EventType{
	EventHarshBrake,
	EventHarshAccel,
	EventHarshCorner,
	EventSpeeding5,
	EventSpeeding10,
	EventSpeeding20,
	EventDistraction,
}

// DetectedEvent is one contiguous (post-debounce) segment flagged by a
// detector.
type DetectedEvent struct {
	ID       string         `json:"id"`
	TripID   string         `json:"trip_id"`
	Type     EventType      `json:"type"`
	TSStart  time.Time      `json:"ts_start"`
	TSEnd    *time.Time     `json:"ts_end,omitempty"`
	Severity float64        `json:"severity"`
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lon"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Duration returns the event duration. ok is false when the event has no
// end time, in which case the duration is undefined.
func (e DetectedEvent) Duration() (time.Duration, bool) {
	if e.TSEnd == nil {
		return 0, false
	}
	return e.TSEnd.Sub(e.TSStart), true
}
