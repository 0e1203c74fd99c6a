package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/section-scheduler/internal/model"
)

// ErrCourseNotFound is returned when a course lookup fails.
var ErrCourseNotFound = errors.New("course not found")

// CourseRepo provides persistence for the course catalogue.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo constructs a CourseRepo with the given DB handle.
func NewCourseRepo(db *sql.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// Upsert creates the course when c.ID is empty and updates it otherwise.
// After the call c holds the stored row including timestamps.  Updating an
// unknown id returns ErrCourseNotFound and a taken code ErrDuplicate.
func (r *CourseRepo) Upsert(ctx context.Context, c *model.Course) error {
	var err error
	if c.ID == "" {
		c.ID = uuid.NewString()
		_, err = r.db.ExecContext(ctx, `INSERT INTO courses (id, name, code) VALUES (?, ?, ?)`, c.ID, c.Name, c.Code)
	} else {
		var res sql.Result
		res, err = r.db.ExecContext(ctx, `UPDATE courses SET name = ?, code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, c.Name, c.Code, c.ID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				// MySQL reports zero affected rows for identical values too
				if _, gerr := r.GetByID(ctx, c.ID); gerr != nil {
					return gerr
				}
			}
		}
	}
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	fresh, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// GetByID retrieves a course by its ID.
func (r *CourseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	const q = `SELECT id, name, code, created_at, updated_at FROM courses WHERE id = ?`
	var c model.Course
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns every course ordered by code.
func (r *CourseRepo) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, code, created_at, updated_at FROM courses ORDER BY code, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// existsTx reports whether a course row exists inside tx.
func (r *CourseRepo) existsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
