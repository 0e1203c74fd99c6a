package schedule

// Enrollment is one row of a student's timetable: the StudentSchedule id and
// the section it enrolls the student in.
type Enrollment struct {
	ScheduleID string
	Section    Section
}

// EnrollmentStatus is the three-way outcome of CheckStudentEnrollment.
type EnrollmentStatus string

const (
	Enrollable      EnrollmentStatus = "ENROLLABLE"
	AlreadyEnrolled EnrollmentStatus = "ALREADY_ENROLLED"
	TimeConflict    EnrollmentStatus = "TIME_CONFLICT"
)

// StudentVerdict reports whether a student may join a section.  For
// TimeConflict the offending enrollment and its section are named.
type StudentVerdict struct {
	Status             EnrollmentStatus `json:"status"`
	ConflictScheduleID string           `json:"conflict_schedule_id,omitempty"`
	ConflictSectionID  string           `json:"conflict_section_id,omitempty"`
}

// CanEnroll is what a client uses to enable an Enroll action.
func (v StudentVerdict) CanEnroll() bool { return v.Status == Enrollable }

// Err converts a blocking verdict into a *ConflictError, or returns nil.
func (v StudentVerdict) Err() error {
	switch v.Status {
	case AlreadyEnrolled:
		return &ConflictError{Conflicts: []Conflict{{Kind: KindAlreadyEnrolled, SectionID: v.ConflictSectionID, ScheduleID: v.ConflictScheduleID}}}
	case TimeConflict:
		return &ConflictError{Conflicts: []Conflict{{Kind: KindStudentTime, SectionID: v.ConflictSectionID, ScheduleID: v.ConflictScheduleID}}}
	}
	return nil
}

// CheckStudentEnrollment decides whether a student holding enrollments may
// join candidate.  Membership is checked first: enrolling in a section the
// student already holds is AlreadyEnrolled, never a time conflict.  Otherwise
// the first same-day enrollment whose range overlaps the candidate yields
// TimeConflict.
func CheckStudentEnrollment(candidate Section, enrollments []Enrollment) (StudentVerdict, error) {
	if !candidate.Day.Valid() {
		return StudentVerdict{}, ErrInvalidDay
	}
	if err := candidate.Range.Validate(); err != nil {
		return StudentVerdict{}, err
	}
	for _, e := range enrollments {
		if e.Section.ID == candidate.ID {
			return StudentVerdict{Status: AlreadyEnrolled, ConflictScheduleID: e.ScheduleID, ConflictSectionID: e.Section.ID}, nil
		}
	}
	for _, e := range enrollments {
		if e.Section.Day != candidate.Day {
			continue
		}
		if e.Section.Range.Overlaps(candidate.Range) {
			return StudentVerdict{Status: TimeConflict, ConflictScheduleID: e.ScheduleID, ConflictSectionID: e.Section.ID}, nil
		}
	}
	return StudentVerdict{Status: Enrollable}, nil
}
