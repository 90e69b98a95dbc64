package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user. A unique-violation on email reports ErrDuplicateUser
// so concurrent registrations of the same address resolve to the same error
// the pre-check produces.
func (r *Repository) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, role)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.Email, u.PasswordHash, u.Role)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateUser
	}
	return err
}

// GetByEmail returns the user with the exact email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.get(ctx, `
		SELECT id, email, password, role, created_at
		FROM users WHERE email = $1
	`, email)
}

// GetByID returns the user with the given id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.get(ctx, `
		SELECT id, email, password, role, created_at
		FROM users WHERE id = $1
	`, id)
}

// Email resolves a user id to its email for read-time enrichment.
// ok is false when the id no longer matches a user.
func (r *Repository) Email(ctx context.Context, id string) (string, bool, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", false, err
	}
	if u == nil {
		return "", false, nil
	}
	return u.Email, true, nil
}

func (r *Repository) get(ctx context.Context, query, arg string) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
