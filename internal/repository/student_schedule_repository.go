package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/section-scheduler/internal/model"
)

// ErrScheduleNotFound is returned when an enrollment row does not exist
// or belongs to another student.
var ErrScheduleNotFound = errors.New("schedule not found")

// StudentScheduleRepo stores enrollments (student_schedules rows).
type StudentScheduleRepo struct {
	db *sql.DB
}

// NewStudentScheduleRepo returns a StudentScheduleRepo bound to db.
func NewStudentScheduleRepo(db *sql.DB) *StudentScheduleRepo { return &StudentScheduleRepo{db: db} }

const scheduleDetailQuery = `SELECT ss.id, ss.student_id, ss.created_at, ` + sectionCols + `, c.name, c.code, r.no, u.name
               FROM student_schedules ss
               JOIN sections s ON s.id = ss.section_id
               JOIN courses c ON c.id = s.course_id
               JOIN rooms r ON r.id = s.room_id
               JOIN users u ON u.id = s.faculty_id
               WHERE ss.student_id = ?
               ORDER BY s.day, s.start_time, ss.id`

// ListByStudent returns the student's enrollments with section details.
func (r *StudentScheduleRepo) ListByStudent(ctx context.Context, studentID string) ([]model.ScheduleDetail, error) {
	rows, err := r.db.QueryContext(ctx, scheduleDetailQuery, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleDetail{}
	for rows.Next() {
		var sd model.ScheduleDetail
		// the enrollment columns come first, then the section detail columns
		sec, err := scanSection(prefixScanner{rows, []any{&sd.ID, &sd.StudentID, &sd.CreatedAt}},
			&sd.Section.CourseName, &sd.Section.CourseCode, &sd.Section.RoomNo, &sd.Section.FacultyName)
		if err != nil {
			return nil, err
		}
		sd.Section.Section = sec
		out = append(out, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnrolledSection pairs a schedule id with the section it refers to.
type EnrolledSection struct {
	ScheduleID string
	Section    model.Section
}

// ListByStudentTx returns the student's enrolled sections inside tx and
// locks the student's schedule rows.
func (r *StudentScheduleRepo) ListByStudentTx(ctx context.Context, tx *sql.Tx, studentID string) ([]EnrolledSection, error) {
	const q = `SELECT ss.id, ` + sectionCols + `
               FROM student_schedules ss
               JOIN sections s ON s.id = ss.section_id
               WHERE ss.student_id = ?
               ORDER BY s.day, s.start_time, ss.id
               FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EnrolledSection
	for rows.Next() {
		var e EnrolledSection
		sec, err := scanSection(prefixScanner{rows, []any{&e.ScheduleID}})
		if err != nil {
			return nil, err
		}
		e.Section = sec
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts an enrollment inside tx and returns its id.  A
// duplicate (student, section) pair yields ErrDuplicate.
func (r *StudentScheduleRepo) CreateTx(ctx context.Context, tx *sql.Tx, studentID, sectionID string) (string, error) {
	id := uuid.NewString()
	_, err := tx.ExecContext(ctx, `INSERT INTO student_schedules (id, student_id, section_id) VALUES (?, ?, ?)`, id, studentID, sectionID)
	if err != nil {
		if isDuplicate(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return id, nil
}

// GetByIDAndStudent loads one enrollment owned by studentID.
func (r *StudentScheduleRepo) GetByIDAndStudent(ctx context.Context, id, studentID string) (*model.StudentSchedule, error) {
	var ss model.StudentSchedule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, section_id, created_at FROM student_schedules WHERE id = ? AND student_id = ?`, id, studentID).
		Scan(&ss.ID, &ss.StudentID, &ss.SectionID, &ss.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &ss, nil
}

// DeleteByIDAndStudent drops an enrollment.  Rows of other students are
// reported as ErrScheduleNotFound.
func (r *StudentScheduleRepo) DeleteByIDAndStudent(ctx context.Context, id, studentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM student_schedules WHERE id = ? AND student_id = ?`, id, studentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// prefixScanner scans a row whose leading columns go to head and the rest
// to whatever the caller passes to Scan.
type prefixScanner struct {
	row  scanner
	head []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(append([]any{}, p.head...), dest...)...)
}
