// Package model contains domain models passed between layers.
package model

import "time"

// Accel is a raw three-axis accelerometer reading in m/s².
type Accel struct {
	X float64 `json:"ax"`
	Y float64 `json:"ay"`
	Z float64 `json:"az"`
}

// TelemetrySample is one device-reported reading. It is immutable once
// ingested; optional fields are nil when the device did not report them.
type TelemetrySample struct {
	TS         time.Time
	Lat        float64
	Lon        float64
	SpeedMPS   float64
	HeadingDeg *float64
	HDOP       *float64
	Accel      *Accel
	ScreenOn   *bool
}

// ProcessedSample is a TelemetrySample after the enrichment pass: road-frame
// acceleration from the preprocessor and road attributes from map matching.
// It is built per trip and never persisted.
type ProcessedSample struct {
	TelemetrySample

	AccelLong       float64
	AccelLat        float64
	AccelLongSmooth float64
	AccelLatSmooth  float64

	SpeedLimitMPS *float64
	RoadClass     string // empty when unmatched
	MapMatchConf  *float64
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
