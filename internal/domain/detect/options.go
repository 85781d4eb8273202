package detect

import "github.com/okian/drivescore/internal/domain/quality"

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithGates sets the quality gates applied before every threshold test.
func WithGates(g quality.Gates) Option {
	return func(d *Detector) {
		d.gates = g
	}
}

// WithThresholds replaces the detection thresholds.
func WithThresholds(th Thresholds) Option {
	return func(d *Detector) {
		if len(th.SpeedingBucketsMph) == 0 {
			th.SpeedingBucketsMph = append([]float64(nil), SpeedingBucketsMph...)
		}
		d.th = th
	}
}
