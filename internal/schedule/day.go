// Package schedule implements the temporal conflict-detection engine used to
// gate every write to sections and student enrollments.  Sections occupy a
// weekly recurring slot made of a Day and a TimeRange; two commitments collide
// only when they share the same day and their ranges overlap.  The package is
// pure: callers hand in a snapshot of the current sections and receive a
// verdict.  The Guard type wraps that verdict around a transactional Store so
// that only clean mutations are persisted.
package schedule

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Day is a day of the week.  The zero value is not a valid day so that
// forgotten fields are rejected at the type boundary.
type Day uint8

const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// Days lists every valid day in week order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDay accepts the upper-case storage form ("MONDAY") as well as any
// letter case and the three-letter abbreviation ("mon").
func ParseDay(s string) (Day, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Days {
		name := dayNames[d]
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", s)
}

// Valid reports whether d is one of the seven weekdays.
func (d Day) Valid() bool { return d >= Monday && d <= Sunday }

func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", uint8(d))
	}
	return dayNames[d]
}

// MarshalText encodes the day using its storage name.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", uint8(d))
	}
	return []byte(dayNames[d]), nil
}

// UnmarshalText decodes any form accepted by ParseDay.
func (d *Day) UnmarshalText(b []byte) error {
	v, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value stores the day as its ENUM name.
func (d Day) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", uint8(d))
	}
	return dayNames[d], nil
}

// Scan reads an ENUM column back into a Day.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case nil:
		return fmt.Errorf("day: NULL value")
	}
	return fmt.Errorf("day: unsupported type %T", src)
}
