// Package dataset manages named image collections owned by one user.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dataset is a named collection of images owned by one user. The counts are computed on
// read.
type Dataset struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	UserID          string    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ImageCount      int       `json:"image_count"`
	AnnotationCount int       `json:"annotation_count"`
}

// ErrNotFound is returned when a dataset does not exist or belongs to someone else.
var ErrNotFound = errors.New("dataset not found")

const datasetColumns = `id, name, description, user_id, created_at, updated_at,
	(SELECT COUNT(*) FROM images im WHERE im.dataset_id = datasets.id),
	(SELECT COUNT(*) FROM annotations an
	 JOIN images im ON im.id = an.image_id
	 WHERE im.dataset_id = datasets.id)`

// Repository handles all dataset database operations. Every query is scoped by owner.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanDataset(row pgx.Row) (*Dataset, error) {
	d := &Dataset{}
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.UserID, &d.CreatedAt, &d.UpdatedAt,
		&d.ImageCount, &d.AnnotationCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// Create inserts a dataset for userID.
func (r *Repository) Create(ctx context.Context, userID, name string, description *string) (*Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(ctx,
		`INSERT INTO datasets (name, description, user_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+datasetColumns,
		name, description, userID,
	))
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return d, nil
}

// GetOwned fetches a dataset by id if userID owns it.
func (r *Repository) GetOwned(ctx context.Context, id, userID string) (*Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

// List returns a page of userID's datasets, newest first.
func (r *Repository) List(ctx context.Context, userID string, offset, limit int) ([]*Dataset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+datasetColumns+` FROM datasets
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id
		 OFFSET $2 LIMIT $3`,
		userID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := make([]*Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields to a dataset owned by userID.
func (r *Repository) Update(ctx context.Context, id, userID string, name, description *string) (*Dataset, error) {
	d, err := scanDataset(r.db.QueryRow(ctx,
		`UPDATE datasets
		 SET name = COALESCE($3, name),
		     description = COALESCE($4, description),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+datasetColumns,
		id, userID, name, description,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update dataset: %w", err)
	}
	return d, nil
}

// ObjectKeys lists every storage key (originals and thumbnails) of the dataset's images.
func (r *Repository) ObjectKeys(ctx context.Context, id, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT i.storage_key, i.thumbnail_key
		 FROM images i
		 JOIN datasets d ON d.id = i.dataset_id
		 WHERE d.id = $1 AND d.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dataset object keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var original string
		var thumb *string
		if err := rows.Scan(&original, &thumb); err != nil {
			return nil, fmt.Errorf("scan object keys: %w", err)
		}
		keys = append(keys, original)
		if thumb != nil && *thumb != "" {
			keys = append(keys, *thumb)
		}
	}
	return keys, rows.Err()
}

// Delete removes a dataset owned by userID. Images and annotations cascade.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM datasets WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
