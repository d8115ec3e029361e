// Package user tracks the identities that own datasets and author annotations.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an authenticated identity known to the service.
type User struct {
	ID           string    `json:"id"`
	DatasetCount int       `json:"dataset_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure inserts the user if it is not already known.
func (r *Repository) Ensure(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id together with the number of datasets they own.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(ctx,
		`SELECT u.id, u.created_at,
		        (SELECT COUNT(*) FROM datasets d WHERE d.user_id = u.id)
		 FROM users u WHERE u.id = $1`,
		id,
	).Scan(&u.ID, &u.CreatedAt, &u.DatasetCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}
