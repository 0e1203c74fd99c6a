package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/section-scheduler/internal/model"
)

// ErrRoomNotFound is returned when a room lookup fails.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepo provides persistence for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Upsert creates the room when rm.ID is empty and updates it otherwise,
// then reloads the stored row into rm.
func (r *RoomRepo) Upsert(ctx context.Context, rm *model.Room) error {
	var err error
	if rm.ID == "" {
		rm.ID = uuid.NewString()
		_, err = r.db.ExecContext(ctx, `INSERT INTO rooms (id, no, max_capacity) VALUES (?, ?, ?)`, rm.ID, rm.No, rm.MaxCapacity)
	} else {
		var res sql.Result
		res, err = r.db.ExecContext(ctx, `UPDATE rooms SET no = ?, max_capacity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, rm.No, rm.MaxCapacity, rm.ID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				if _, gerr := r.GetByID(ctx, rm.ID); gerr != nil {
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
	fresh, err := r.GetByID(ctx, rm.ID)
	if err != nil {
		return err
	}
	*rm = *fresh
	return nil
}

// GetByID retrieves a room by its ID.
func (r *RoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	const q = `SELECT id, no, max_capacity, created_at, updated_at FROM rooms WHERE id = ?`
	var rm model.Room
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&rm.ID, &rm.No, &rm.MaxCapacity, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

// List returns every room ordered by its label.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, no, max_capacity, created_at, updated_at FROM rooms ORDER BY no, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.No, &rm.MaxCapacity, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *RoomRepo) existsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
