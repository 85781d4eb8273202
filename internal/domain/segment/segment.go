// Package segment groups runs of consecutive samples that satisfy a predicate
// and cleans them up: short runs are dropped, then runs separated by small
// gaps are stitched together.
package segment

import "time"

// Segment holds the indices of consecutive samples, in order.
type Segment []int

// First returns the first sample index.
func (s Segment) First() int { return s[0] }

// Last returns the last sample index.
func (s Segment) Last() int { return s[len(s)-1] }

// Middle returns the index of the middle sample.
func (s Segment) Middle() int { return s[len(s)/2] }

// TimeFunc returns the timestamp of sample i.
type TimeFunc func(i int) time.Time

// GroupConsecutive scans n samples once and returns every maximal run of
// indices for which pred holds.
func GroupConsecutive(n int, pred func(i int) bool) []Segment {
	var (
		out     []Segment
		current Segment
	)
	for i := 0; i < n; i++ {
		if pred(i) {
			current = append(current, i)
			continue
		}
		if len(current) > 0 {
			out = append(out, current)
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// FilterByDuration drops segments with fewer than two samples or whose span
// is shorter than minDuration.
func FilterByDuration(segs []Segment, ts TimeFunc, minDuration time.Duration) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if len(s) < 2 {
			continue
		}
		if ts(s.Last()).Sub(ts(s.First())) < minDuration {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Debounce merges each segment into the running one when the gap between the
// running segment's last sample and the next segment's first sample is at
// most gap. Merging is plain concatenation; merged segments are not checked
// against any duration rule again.
func Debounce(segs []Segment, ts TimeFunc, gap time.Duration) []Segment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]Segment, 0, len(segs))
	running := append(Segment(nil), segs[0]...)
	for _, next := range segs[1:] {
		if ts(next.First()).Sub(ts(running.Last())) <= gap {
			running = append(running, next...)
			continue
		}
		out = append(out, running)
		running = append(Segment(nil), next...)
	}
	return append(out, running)
}

// Span returns the time covered by a segment.
func Span(s Segment, ts TimeFunc) time.Duration {
	if len(s) < 2 {
		return 0
	}
	return ts(s.Last()).Sub(ts(s.First()))
}
