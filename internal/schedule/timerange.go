package schedule

import (
	"fmt"
	"strings"
	"time"
)

// referenceDate is the calendar date every time-of-day value is anchored on.
var referenceDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Normalize discards the calendar date of t and keeps its clock reading
// (hour, minute and second, as read in t's own location) on the fixed
// reference date in UTC.  Sub-second parts are dropped: sections are stored
// in whole-second TIME columns, and a range must compare the same before and
// after it is written.  Two normalized values compare by time of day alone.
func Normalize(t time.Time) time.Time {
	h, m, s := t.Clock()
	return time.Date(referenceDate.Year(), referenceDate.Month(), referenceDate.Day(), h, m, s, 0, time.UTC)
}

var clockLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
}

// ParseTimeOfDay parses an ISO-8601 timestamp or a bare clock value such as
// "09:30" and returns it normalized.
func ParseTimeOfDay(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return Normalize(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q", s)
}

// TimeRange is a half-open [Start, End) span of time of day.  Values built by
// NewTimeRange are normalized and satisfy Start < End.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange normalizes start and end and returns ErrInvalidRange unless
// start is strictly before end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	r := TimeRange{Start: Normalize(start), End: Normalize(end)}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

// MustTimeRange is NewTimeRange for clock literals like "09:00".  It panics on
// bad input and is intended for tests and fixtures.
func MustTimeRange(start, end string) TimeRange {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	r, err := NewTimeRange(s, e)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate returns ErrInvalidRange for zero-length or inverted ranges.
func (r TimeRange) Validate() error {
	if !Normalize(r.Start).Before(Normalize(r.End)) {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	return nil
}

// Overlaps reports whether r and o share any instant.  Ranges that only touch
// (r.End == o.Start) do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	a0, a1 := Normalize(r.Start), Normalize(r.End)
	b0, b1 := Normalize(o.Start), Normalize(o.End)
	return a0.Before(b1) && b0.Before(a1)
}

// Duration is End minus Start.
func (r TimeRange) Duration() time.Duration {
	return Normalize(r.End).Sub(Normalize(r.Start))
}

func (r TimeRange) String() string {
	return Normalize(r.Start).Format("15:04") + "-" + Normalize(r.End).Format("15:04")
}
