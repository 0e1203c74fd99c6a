package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/section-scheduler/internal/model"
	"github.com/iliyamo/section-scheduler/internal/schedule"
)

// ErrSectionNotFound indicates that a section was not located in the DB.
var ErrSectionNotFound = errors.New("section not found")

// clockLayout is how TIME columns are written.  The driver hands TIME
// values back as text even with parseTime=true, so they are parsed with
// schedule.ParseTimeOfDay on the way out.
const clockLayout = "15:04:05"

const sectionCols = `s.id, s.code, s.name, s.course_id, s.room_id, s.faculty_id, s.day, s.start_time, s.end_time, s.created_at, s.updated_at`

const sectionDetailQuery = `SELECT ` + sectionCols + `, c.name, c.code, r.no, u.name
               FROM sections s
               JOIN courses c ON c.id = s.course_id
               JOIN rooms r ON r.id = s.room_id
               JOIN users u ON u.id = s.faculty_id`

// SectionRepo manages persistence for sections.
type SectionRepo struct {
	db *sql.DB
}

// NewSectionRepo constructs a SectionRepo with the given DB handle.
func NewSectionRepo(db *sql.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *SectionRepo) DB() *sql.DB {
	return r.db
}

type scanner interface{ Scan(...any) error }

// scanSection reads sectionCols followed by any extra destinations.
func scanSection(row scanner, extra ...any) (model.Section, error) {
	var (
		s          model.Section
		start, end string
	)
	dest := append([]any{&s.ID, &s.Code, &s.Name, &s.CourseID, &s.RoomID, &s.FacultyID, &s.Day, &start, &end, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}
	var err error
	if s.StartTime, err = schedule.ParseTimeOfDay(start); err != nil {
		return s, fmt.Errorf("section %s start_time: %w", s.ID, err)
	}
	if s.EndTime, err = schedule.ParseTimeOfDay(end); err != nil {
		return s, fmt.Errorf("section %s end_time: %w", s.ID, err)
	}
	return s, nil
}

func scanSectionDetail(row scanner) (model.SectionDetail, error) {
	var d model.SectionDetail
	s, err := scanSection(row, &d.CourseName, &d.CourseCode, &d.RoomNo, &d.FacultyName)
	d.Section = s
	return d, err
}

func collectDetails(rows *sql.Rows) ([]model.SectionDetail, error) {
	defer rows.Close()
	out := []model.SectionDetail{}
	for rows.Next() {
		d, err := scanSectionDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a section by its ID.  It returns ErrSectionNotFound if
// there is no matching row.
func (r *SectionRepo) GetByID(ctx context.Context, id string) (*model.SectionDetail, error) {
	d, err := scanSectionDetail(r.db.QueryRowContext(ctx, sectionDetailQuery+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns every section with course, room and faculty labels ordered
// by weekday and start time.
func (r *SectionRepo) List(ctx context.Context) ([]model.SectionDetail, error) {
	rows, err := r.db.QueryContext(ctx, sectionDetailQuery+` ORDER BY s.day, s.start_time, s.id`)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// ListByFaculty returns the sections taught by facultyID.
func (r *SectionRepo) ListByFaculty(ctx context.Context, facultyID string) ([]model.SectionDetail, error) {
	rows, err := r.db.QueryContext(ctx, sectionDetailQuery+` WHERE s.faculty_id = ? ORDER BY s.day, s.start_time, s.id`, facultyID)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// GetByIDTx loads a section inside tx and locks its row.
func (r *SectionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (model.Section, error) {
	s, err := scanSection(tx.QueryRowContext(ctx, `SELECT `+sectionCols+` FROM sections s WHERE s.id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrSectionNotFound
	}
	return s, err
}

// ListByDayTx returns every section on day in start-time order and takes
// next-key locks on the day's index range, so a concurrent writer checking
// the same day waits for this transaction to finish.
func (r *SectionRepo) ListByDayTx(ctx context.Context, tx *sql.Tx, day schedule.Day) ([]model.Section, error) {
	rows, err := tx.QueryContext(ctx, sectionsOnDayQuery+` FOR UPDATE`, day)
	if err != nil {
		return nil, err
	}
	return collectSections(rows)
}

// ListByDay is ListByDayTx without a transaction or locks.
func (r *SectionRepo) ListByDay(ctx context.Context, day schedule.Day) ([]model.Section, error) {
	rows, err := r.db.QueryContext(ctx, sectionsOnDayQuery, day)
	if err != nil {
		return nil, err
	}
	return collectSections(rows)
}

const sectionsOnDayQuery = `SELECT ` + sectionCols + ` FROM sections s WHERE s.day = ? ORDER BY s.start_time, s.id`

func collectSections(rows *sql.Rows) ([]model.Section, error) {
	defer rows.Close()
	var out []model.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts s with a fresh UUID inside tx and sets s.ID.
func (r *SectionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Section) error {
	const q = `INSERT INTO sections (id, code, name, course_id, room_id, faculty_id, day, start_time, end_time)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, q, id, s.Code, s.Name, s.CourseID, s.RoomID, s.FacultyID, s.Day,
		s.StartTime.Format(clockLayout), s.EndTime.Format(clockLayout)); err != nil {
		return err
	}
	s.ID = id
	return nil
}

// UpdateTx overwrites every mutable column of the section with id s.ID.
func (r *SectionRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s model.Section) error {
	const q = `UPDATE sections
               SET code = ?, name = ?, course_id = ?, room_id = ?, faculty_id = ?, day = ?, start_time = ?, end_time = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, s.Code, s.Name, s.CourseID, s.RoomID, s.FacultyID, s.Day,
		s.StartTime.Format(clockLayout), s.EndTime.Format(clockLayout), s.ID)
	return err
}

// DeleteByID removes a section.  The deletion is refused with ErrConflict
// while any student is enrolled in it.
func (r *SectionRepo) DeleteByID(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = r.GetByIDTx(ctx, tx, id); err != nil {
		return err
	}
	var enrolled int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM student_schedules WHERE section_id = ?`, id).Scan(&enrolled); err != nil {
		return err
	}
	if enrolled > 0 {
		return ErrConflict
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	return err
}
