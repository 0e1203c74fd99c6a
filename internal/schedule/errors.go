package schedule

import (
	"errors"
	"strings"
)

// ErrInvalidRange is returned when a range does not start strictly before it
// ends.  It is checked before any conflict scan.
var ErrInvalidRange = errors.New("start time must be before end time")

// ErrInvalidDay is returned when a candidate carries no valid weekday.
var ErrInvalidDay = errors.New("invalid day")

// ErrUnknownReference wraps lookups of rooms, faculty, courses, sections or
// students that cannot be resolved.  It signals a broken precondition of the
// caller, not a scheduling collision.
var ErrUnknownReference = errors.New("unknown reference")

// ErrConflict matches every *ConflictError via errors.Is.
var ErrConflict = errors.New("schedule conflict")

// ConflictKind names a recoverable scheduling outcome that blocks a write.
type ConflictKind string

const (
	KindRoom            ConflictKind = "ROOM_CONFLICT"
	KindFaculty         ConflictKind = "FACULTY_CONFLICT"
	KindAlreadyEnrolled ConflictKind = "ALREADY_ENROLLED"
	KindStudentTime     ConflictKind = "STUDENT_TIME_CONFLICT"
)

// Conflict identifies one blocking commitment.  SectionID is the offending
// section; ScheduleID is set for student conflicts and names the enrollment
// row that holds it.
type Conflict struct {
	Kind       ConflictKind `json:"kind"`
	SectionID  string       `json:"section_id,omitempty"`
	ScheduleID string       `json:"schedule_id,omitempty"`
}

// ConflictError carries every conflict found by a check.  A resource check
// may report a room and a faculty conflict at once.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		s := strings.ToLower(string(c.Kind))
		if c.SectionID != "" {
			s += " with section " + c.SectionID
		}
		parts = append(parts, s)
	}
	return "schedule conflict: " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrConflict) match any ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Has reports whether a conflict of the given kind is present.
func (e *ConflictError) Has(kind ConflictKind) bool {
	_, ok := e.Find(kind)
	return ok
}

// Find returns the first conflict of the given kind.
func (e *ConflictError) Find(kind ConflictKind) (Conflict, bool) {
	for _, c := range e.Conflicts {
		if c.Kind == kind {
			return c, true
		}
	}
	return Conflict{}, false
}

// AsConflict unwraps err into a *ConflictError.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
