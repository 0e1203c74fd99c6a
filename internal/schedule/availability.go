package schedule

// Section is the engine's view of a scheduled course offering: one weekly
// slot bound to one room and one faculty member.  Name, Code and CourseID
// ride along for the write path and play no part in conflict checks.
type Section struct {
	ID        string
	Code      string
	Name      string
	CourseID  string
	RoomID    string
	FacultyID string
	Day       Day
	Range     TimeRange
}

// Slot returns the section as a SlotRequest that excludes the section itself,
// which is the shape every edit must be checked in.
func (s Section) Slot() SlotRequest {
	return SlotRequest{
		Day:              s.Day,
		Range:            s.Range,
		RoomID:           s.RoomID,
		FacultyID:        s.FacultyID,
		ExcludeSectionID: s.ID,
	}
}

// SlotRequest is a candidate (day, range, room, faculty) commitment.
// ExcludeSectionID names a section whose current occupancy is ignored; it is
// set when an existing section is being edited.
type SlotRequest struct {
	Day              Day
	Range            TimeRange
	RoomID           string
	FacultyID        string
	ExcludeSectionID string
}

// ResourceVerdict is the outcome of CheckResourceAvailability.  Each field
// holds the first offending section id found for that resource, or is empty.
type ResourceVerdict struct {
	RoomConflict    string `json:"room_conflict,omitempty"`
	FacultyConflict string `json:"faculty_conflict,omitempty"`
}

// Available is true when neither the room nor the faculty member is taken.
func (v ResourceVerdict) Available() bool {
	return v.RoomConflict == "" && v.FacultyConflict == ""
}

// Err converts a non-available verdict into a *ConflictError listing every
// conflict.  It returns nil when the slot is available.
func (v ResourceVerdict) Err() error {
	if v.Available() {
		return nil
	}
	ce := &ConflictError{}
	if v.RoomConflict != "" {
		ce.Conflicts = append(ce.Conflicts, Conflict{Kind: KindRoom, SectionID: v.RoomConflict})
	}
	if v.FacultyConflict != "" {
		ce.Conflicts = append(ce.Conflicts, Conflict{Kind: KindFaculty, SectionID: v.FacultyConflict})
	}
	return ce
}

// CheckResourceAvailability decides whether the requested room and faculty
// member are free on req.Day for req.Range given the existing sections.
// Sections on other days and the excluded section never conflict.  The room
// and the faculty checks run independently over the same candidates, so one
// existing section may trigger both.  An invalid day or range is rejected
// before any section is scanned.
func CheckResourceAvailability(req SlotRequest, sections []Section) (ResourceVerdict, error) {
	if !req.Day.Valid() {
		return ResourceVerdict{}, ErrInvalidDay
	}
	if err := req.Range.Validate(); err != nil {
		return ResourceVerdict{}, err
	}
	var v ResourceVerdict
	for _, s := range sections {
		if s.Day != req.Day {
			continue
		}
		if req.ExcludeSectionID != "" && s.ID == req.ExcludeSectionID {
			continue
		}
		if !s.Range.Overlaps(req.Range) {
			continue
		}
		if v.RoomConflict == "" && req.RoomID != "" && s.RoomID == req.RoomID {
			v.RoomConflict = s.ID
		}
		if v.FacultyConflict == "" && req.FacultyID != "" && s.FacultyID == req.FacultyID {
			v.FacultyConflict = s.ID
		}
		if v.RoomConflict != "" && v.FacultyConflict != "" {
			break
		}
	}
	return v, nil
}
