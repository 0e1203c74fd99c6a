package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDropsDate(t *testing.T) {
	a := time.Date(2023, time.March, 14, 9, 30, 15, 500, time.UTC)
	b := time.Date(1999, time.December, 31, 9, 30, 15, 500, time.UTC)
	assert.True(t, Normalize(a).Equal(Normalize(b)))
	assert.Equal(t, 2000, Normalize(a).Year())
	assert.Zero(t, Normalize(a).Nanosecond())

	later := time.Date(1980, time.January, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, Normalize(a).Before(Normalize(later)))
}

func TestSubSecondRangesCollapseToStoredPrecision(t *testing.T) {
	at := func(sec, ms int) time.Time {
		return time.Date(2024, time.May, 6, 9, 0, sec, ms*int(time.Millisecond), time.UTC)
	}

	_, err := NewTimeRange(at(0, 200), at(0, 700))
	assert.ErrorIs(t, err, ErrInvalidRange)

	r, err := NewTimeRange(at(0, 0), at(1, 500))
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", r.Start.Format("15:04:05"))
	assert.Equal(t, time.Second, r.Duration())

	early, err := NewTimeRange(at(0, 0).Add(-time.Hour), at(0, 500))
	require.NoError(t, err)
	assert.False(t, early.Overlaps(MustTimeRange("09:00", "10:00")))
}

func TestNormalizeKeepsLocalClock(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	v := Normalize(time.Date(2024, time.June, 1, 8, 15, 0, 0, loc))
	assert.Equal(t, 8, v.Hour())
	assert.Equal(t, 15, v.Minute())
	assert.Equal(t, time.UTC, v.Location())
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]string{
		"09:30":                "09:30:00",
		"9:30 AM":              "09:30:00",
		"1:05 PM":              "13:05:00",
		"13:45:10":             "13:45:10",
		"2024-02-10T07:00:00Z": "07:00:00",
		"2021-05-05 22:10:00":  "22:10:00",
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Format("15:04:05"), in)
	}
	_, err := ParseTimeOfDay("noon")
	assert.Error(t, err)
}

func TestNewTimeRangeRejectsEmptyAndInverted(t *testing.T) {
	nine, _ := ParseTimeOfDay("09:00")
	ten, _ := ParseTimeOfDay("10:00")

	_, err := NewTimeRange(nine, nine)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = NewTimeRange(ten, nine)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	r, err := NewTimeRange(nine, ten)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.Duration())
	assert.Equal(t, "09:00-10:00", r.String())
}

func TestNewTimeRangeIgnoresDates(t *testing.T) {
	// end carries an earlier calendar date but a later clock reading
	start := time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC)
	end := time.Date(2020, time.January, 1, 11, 0, 0, 0, time.UTC)
	r, err := NewTimeRange(start, end)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, r.Duration())
}

func TestOverlapPlacements(t *testing.T) {
	base := MustTimeRange("10:00", "12:00")
	cases := []struct {
		name  string
		other TimeRange
		want  bool
	}{
		{"entirely before", MustTimeRange("08:00", "09:00"), false},
		{"touching before", MustTimeRange("09:00", "10:00"), false},
		{"overlapping start", MustTimeRange("09:00", "10:30"), true},
		{"contained", MustTimeRange("10:30", "11:30"), true},
		{"containing", MustTimeRange("09:00", "13:00"), true},
		{"overlapping end", MustTimeRange("11:30", "12:30"), true},
		{"touching after", MustTimeRange("12:00", "13:00"), false},
		{"entirely after", MustTimeRange("13:00", "14:00"), false},
		{"equal", MustTimeRange("10:00", "12:00"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestOverlapSelf(t *testing.T) {
	for _, r := range []TimeRange{
		MustTimeRange("00:00", "00:01"),
		MustTimeRange("09:00", "10:00"),
		MustTimeRange("23:00", "23:59:59"),
	} {
		assert.True(t, r.Overlaps(r), r.String())
	}
}

func TestContainmentDetected(t *testing.T) {
	outer := MustTimeRange("09:00", "12:00")
	inner := MustTimeRange("10:00", "11:00")
	assert.True(t, outer.Overlaps(inner))
	assert.True(t, inner.Overlaps(outer))
}

func TestAdjacentDoesNotOverlap(t *testing.T) {
	assert.False(t, MustTimeRange("09:00", "10:00").Overlaps(MustTimeRange("10:00", "11:00")))
}

func TestDayParsing(t *testing.T) {
	for in, want := range map[string]Day{"MONDAY": Monday, "tuesday": Tuesday, "Wed": Wednesday, " sun ": Sunday} {
		d, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d)
	}
	_, err := ParseDay("funday")
	assert.Error(t, err)

	var zero Day
	assert.False(t, zero.Valid())
	_, err = zero.MarshalText()
	assert.Error(t, err)

	var d Day
	require.NoError(t, d.Scan([]byte("FRIDAY")))
	assert.Equal(t, Friday, d)
	v, err := Saturday.Value()
	require.NoError(t, err)
	assert.Equal(t, "SATURDAY", v)
}
