// Package temporal provides validity-interval parsing and overlap checks
// for time-stamped clinical measurements.
package temporal

import (
	"fmt"
	"time"
)

// Layouts accepted for measurement timestamps, tried in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Interval is a closed validity window with Start <= End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval constructs an Interval, rejecting inverted windows.
func NewInterval(start, end time.Time) (Interval, error) {
	if start.After(end) {
		return Interval{}, fmt.Errorf("interval start %s after end %s", start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// ParseTime parses a measurement timestamp against the accepted layouts.
func ParseTime(value string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// Parse builds an Interval from raw start/end timestamp strings.
func Parse(start, end string) (Interval, error) {
	startT, err := ParseTime(start)
	if err != nil {
		return Interval{}, fmt.Errorf("parsing start time: %w", err)
	}
	endT, err := ParseTime(end)
	if err != nil {
		return Interval{}, fmt.Errorf("parsing end time: %w", err)
	}
	return NewInterval(startT, endT)
}

// OverlapAll reports whether all intervals share at least one common
// instant. Zero or one intervals overlap trivially. The test is the
// N-way interval intersection: max(starts) <= min(ends).
func OverlapAll(intervals []Interval) bool {
	if len(intervals) < 2 {
		return true
	}

	latestStart := intervals[0].Start
	earliestEnd := intervals[0].End
	for _, iv := range intervals[1:] {
		if iv.Start.After(latestStart) {
			latestStart = iv.Start
		}
		if iv.End.Before(earliestEnd) {
			earliestEnd = iv.End
		}
	}

	return !latestStart.After(earliestEnd)
}
