package schedule

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Tx is the persistence view a guarded mutation runs against.  Reads and
// writes issued through one Tx must belong to the same database transaction
// so that the snapshot a check sees is still current when the write lands.
type Tx interface {
	// Section loads a section by id; unknown ids wrap ErrUnknownReference.
	Section(ctx context.Context, id string) (Section, error)
	// CheckReferences verifies course, room and faculty ids resolve to rows
	// (faculty must hold the FACULTY role); failures wrap ErrUnknownReference.
	CheckReferences(ctx context.Context, courseID, roomID, facultyID string) error
	// SectionsOnDay returns every section scheduled on day, locking them
	// against concurrent writers where the backend supports it.
	SectionsOnDay(ctx context.Context, day Day) ([]Section, error)
	// InsertSection persists a new section and sets s.ID.
	InsertSection(ctx context.Context, s *Section) error
	// UpdateSection overwrites the stored section with id s.ID.
	UpdateSection(ctx context.Context, s Section) error

	// CheckStudent verifies the student id resolves; failures wrap ErrUnknownReference.
	CheckStudent(ctx context.Context, studentID string) error
	// Enrollments returns the student's enrollments with their sections.
	Enrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	// InsertEnrollment persists a StudentSchedule row and returns its id.
	InsertEnrollment(ctx context.Context, studentID, sectionID string) (string, error)
}

// Store runs fn inside one transaction, committing when fn returns nil and
// rolling back otherwise.  SectionsOnDay is a plain read outside any
// transaction and takes no locks.
type Store interface {
	WithinTx(ctx context.Context, fn func(Tx) error) error
	SectionsOnDay(ctx context.Context, day Day) ([]Section, error)
}

// Guard is the single enforcement point for the no-double-booking
// invariants.  Every section write and every enrollment must go through it.
type Guard struct {
	store Store
	log   *zap.Logger
}

// NewGuard builds a Guard.  A nil logger disables logging.
func NewGuard(store Store, log *zap.Logger) *Guard {
	if store == nil {
		panic("nil store passed to NewGuard")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{store: store, log: log}
}

// CreateOrUpdateSection creates s when s.ID is empty and updates the section
// with that id otherwise.  Updates are always checked excluding the section's
// own stored occupancy.  The write happens only when the room and the
// faculty member are both free; otherwise a *ConflictError lists every
// conflict.  It returns the id of the written section.
func (g *Guard) CreateOrUpdateSection(ctx context.Context, s Section) (string, error) {
	if !s.Day.Valid() {
		return "", ErrInvalidDay
	}
	r, err := NewTimeRange(s.Range.Start, s.Range.End)
	if err != nil {
		return "", err
	}
	s.Range = r

	err = g.store.WithinTx(ctx, func(tx Tx) error {
		if s.ID != "" {
			if _, err := tx.Section(ctx, s.ID); err != nil {
				return err
			}
		}
		if err := tx.CheckReferences(ctx, s.CourseID, s.RoomID, s.FacultyID); err != nil {
			return err
		}
		existing, err := tx.SectionsOnDay(ctx, s.Day)
		if err != nil {
			return fmt.Errorf("load sections: %w", err)
		}
		verdict, err := CheckResourceAvailability(s.Slot(), existing)
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return err
		}
		if s.ID == "" {
			return tx.InsertSection(ctx, &s)
		}
		return tx.UpdateSection(ctx, s)
	})
	if err != nil {
		g.logRejection("section write rejected", err, zap.String("section_id", s.ID), zap.Stringer("day", s.Day), zap.Stringer("range", s.Range))
		return "", err
	}
	g.log.Info("section written", zap.String("section_id", s.ID), zap.Stringer("day", s.Day), zap.Stringer("range", s.Range))
	return s.ID, nil
}

// CheckSection evaluates s the way CreateOrUpdateSection would without
// writing anything.  It reads without locks, so the verdict is only a
// preview: a later write re-checks under lock.
func (g *Guard) CheckSection(ctx context.Context, s Section) (ResourceVerdict, error) {
	if !s.Day.Valid() {
		return ResourceVerdict{}, ErrInvalidDay
	}
	r, err := NewTimeRange(s.Range.Start, s.Range.End)
	if err != nil {
		return ResourceVerdict{}, err
	}
	s.Range = r
	existing, err := g.store.SectionsOnDay(ctx, s.Day)
	if err != nil {
		return ResourceVerdict{}, fmt.Errorf("load sections: %w", err)
	}
	return CheckResourceAvailability(s.Slot(), existing)
}

// Enroll records studentID in sectionID when CheckStudentEnrollment yields
// Enrollable and returns the new schedule id.  Already-enrolled and
// overlapping attempts are returned as *ConflictError.
func (g *Guard) Enroll(ctx context.Context, studentID, sectionID string) (string, error) {
	var scheduleID string
	err := g.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.CheckStudent(ctx, studentID); err != nil {
			return err
		}
		candidate, err := tx.Section(ctx, sectionID)
		if err != nil {
			return err
		}
		enrollments, err := tx.Enrollments(ctx, studentID)
		if err != nil {
			return fmt.Errorf("load enrollments: %w", err)
		}
		verdict, err := CheckStudentEnrollment(candidate, enrollments)
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return err
		}
		scheduleID, err = tx.InsertEnrollment(ctx, studentID, sectionID)
		return err
	})
	if err != nil {
		g.logRejection("enrollment rejected", err, zap.String("student_id", studentID), zap.String("section_id", sectionID))
		return "", err
	}
	g.log.Info("student enrolled", zap.String("student_id", studentID), zap.String("section_id", sectionID), zap.String("schedule_id", scheduleID))
	return scheduleID, nil
}

// logRejection logs business rejections at Info and anything else at Error.
func (g *Guard) logRejection(msg string, err error, fields ...zap.Field) {
	if ce, ok := AsConflict(err); ok {
		for _, c := range ce.Conflicts {
			g.log.Info(msg, append(fields, zap.String("kind", string(c.Kind)), zap.String("offending_section_id", c.SectionID))...)
		}
		return
	}
	if errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrInvalidDay) {
		g.log.Info(msg, append(fields, zap.Error(err))...)
		return
	}
	g.log.Error(msg, append(fields, zap.Error(err))...)
}
