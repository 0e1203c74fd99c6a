package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/section-scheduler/internal/model"
	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// ScheduleStore adapts the section, schedule and catalogue repositories to
// schedule.Store.  Each WithinTx call runs in one SERIALIZABLE transaction;
// together with the FOR UPDATE reads this makes "read sections, check,
// write" atomic with respect to other guarded writers.
type ScheduleStore struct {
	db        *sql.DB
	Sections  *SectionRepo
	Schedules *StudentScheduleRepo
	Courses   *CourseRepo
	Rooms     *RoomRepo
}

// NewScheduleStore wires a ScheduleStore over db.
func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{
		db:        db,
		Sections:  NewSectionRepo(db),
		Schedules: NewStudentScheduleRepo(db),
		Courses:   NewCourseRepo(db),
		Rooms:     NewRoomRepo(db),
	}
}

// WithinTx implements schedule.Store.
func (s *ScheduleStore) WithinTx(ctx context.Context, fn func(schedule.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&storeTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// SectionsOnDay implements schedule.Store with an unlocked read.
func (s *ScheduleStore) SectionsOnDay(ctx context.Context, day schedule.Day) ([]schedule.Section, error) {
	rows, err := s.Sections.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	return slotsOf(rows), nil
}

func slotsOf(rows []model.Section) []schedule.Section {
	out := make([]schedule.Section, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Slot())
	}
	return out
}

type storeTx struct {
	s  *ScheduleStore
	tx *sql.Tx
}

func (t *storeTx) Section(ctx context.Context, id string) (schedule.Section, error) {
	sec, err := t.s.Sections.GetByIDTx(ctx, t.tx, id)
	if err != nil {
		if errors.Is(err, ErrSectionNotFound) {
			return schedule.Section{}, fmt.Errorf("%w: section %s", schedule.ErrUnknownReference, id)
		}
		return schedule.Section{}, err
	}
	return sec.Slot(), nil
}

func (t *storeTx) CheckReferences(ctx context.Context, courseID, roomID, facultyID string) error {
	ok, err := t.s.Courses.existsTx(ctx, t.tx, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: course %s", schedule.ErrUnknownReference, courseID)
	}
	if ok, err = t.s.Rooms.existsTx(ctx, t.tx, roomID); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: room %s", schedule.ErrUnknownReference, roomID)
	}
	role, err := roleOfTx(ctx, t.tx, facultyID)
	if errors.Is(err, ErrUserNotFound) || (err == nil && role != model.RoleFaculty) {
		return fmt.Errorf("%w: faculty %s", schedule.ErrUnknownReference, facultyID)
	}
	return err
}

func (t *storeTx) SectionsOnDay(ctx context.Context, day schedule.Day) ([]schedule.Section, error) {
	rows, err := t.s.Sections.ListByDayTx(ctx, t.tx, day)
	if err != nil {
		return nil, err
	}
	return slotsOf(rows), nil
}

func (t *storeTx) InsertSection(ctx context.Context, s *schedule.Section) error {
	m := model.SectionFromSlot(*s)
	if err := t.s.Sections.CreateTx(ctx, t.tx, &m); err != nil {
		return err
	}
	s.ID = m.ID
	return nil
}

func (t *storeTx) UpdateSection(ctx context.Context, s schedule.Section) error {
	return t.s.Sections.UpdateTx(ctx, t.tx, model.SectionFromSlot(s))
}

func (t *storeTx) CheckStudent(ctx context.Context, studentID string) error {
	role, err := roleOfTx(ctx, t.tx, studentID)
	if errors.Is(err, ErrUserNotFound) || (err == nil && role != model.RoleStudent) {
		return fmt.Errorf("%w: student %s", schedule.ErrUnknownReference, studentID)
	}
	return err
}

func (t *storeTx) Enrollments(ctx context.Context, studentID string) ([]schedule.Enrollment, error) {
	rows, err := t.s.Schedules.ListByStudentTx(ctx, t.tx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Enrollment, 0, len(rows))
	for _, r := range rows {
		out = append(out, schedule.Enrollment{ScheduleID: r.ScheduleID, Section: r.Section.Slot()})
	}
	return out, nil
}

func (t *storeTx) InsertEnrollment(ctx context.Context, studentID, sectionID string) (string, error) {
	id, err := t.s.Schedules.CreateTx(ctx, t.tx, studentID, sectionID)
	if errors.Is(err, ErrDuplicate) {
		// the unique key caught a concurrent duplicate the check could not see
		return "", &schedule.ConflictError{Conflicts: []schedule.Conflict{{Kind: schedule.KindAlreadyEnrolled, SectionID: sectionID}}}
	}
	return id, err
}
