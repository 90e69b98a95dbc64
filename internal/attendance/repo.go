package attendance

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a record, relying on the (user_id, date) unique index to
// make the write idempotent. On conflict the surviving row is returned with
// created=false.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, user_id, date, status, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, date) DO NOTHING
		RETURNING created_at, updated_at
	`, rec.ID, rec.UserID, rec.Date, rec.Status, rec.MarkedAt)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race; hand back the record that got there first.
			existing, gerr := r.GetByUserAndDate(ctx, rec.UserID, rec.Date)
			if gerr != nil {
				return Record{}, false, gerr
			}
			if existing == nil {
				return Record{}, false, err
			}
			return *existing, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

// GetByUserAndDate returns the record for (userID, date), or nil when absent.
func (r *Repository) GetByUserAndDate(ctx context.Context, userID, date string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, date, status, marked_at, created_at, updated_at
		FROM attendance
		WHERE user_id = $1 AND date = $2
	`, userID, date)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Status, &rec.MarkedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListByDate returns all records for a date in insertion order.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, status, marked_at, created_at, updated_at
		FROM attendance
		WHERE date = $1
		ORDER BY created_at
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Status, &rec.MarkedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
