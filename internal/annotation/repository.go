// Package annotation stores labeled regions on images.
package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Annotation is a labeled region on one image.
type Annotation struct {
	ID        string          `json:"id"`
	ImageID   string          `json:"image_id"`
	Label     string          `json:"label"`
	Type      Type            `json:"annotation_type"`
	Geometry  json.RawMessage `json:"geometry" swaggertype:"object"`
	CreatedBy *string         `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAnnotation is a validated annotation ready to insert.
type NewAnnotation struct {
	ImageID   string
	Label     string
	Type      Type
	Geometry  []byte
	CreatedBy string
}

const annotationColumns = `a.id, a.image_id, a.label, a.annotation_type, a.geometry,
	a.created_by, a.created_at, a.updated_at`

// Repository handles annotation persistence. Every query joins through images and
// datasets to the owner.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new annotation Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanAnnotation(row pgx.Row) (*Annotation, error) {
	a := &Annotation{}
	var kind string
	var geometry []byte
	err := row.Scan(&a.ID, &a.ImageID, &a.Label, &kind, &geometry, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Type = Type(kind)
	a.Geometry = geometry
	return a, nil
}

// ImageOwned reports whether imageID exists in a dataset owned by userID.
func (r *Repository) ImageOwned(ctx context.Context, imageID, userID string) (bool, error) {
	var owned bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM images i
			JOIN datasets d ON d.id = i.dataset_id
			WHERE i.id = $1 AND d.user_id = $2
		 )`,
		imageID, userID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check image owner: %w", err)
	}
	return owned, nil
}

// ListByImage returns a page of an image's annotations, oldest first.
func (r *Repository) ListByImage(ctx context.Context, imageID, userID string, offset, limit int) ([]*Annotation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+annotationColumns+`
		 FROM annotations a
		 JOIN images i ON i.id = a.image_id
		 JOIN datasets d ON d.id = i.dataset_id
		 WHERE a.image_id = $1 AND d.user_id = $2
		 ORDER BY a.created_at, a.id
		 OFFSET $3 LIMIT $4`,
		imageID, userID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	out := make([]*Annotation, 0)
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return out, nil
}

// Create inserts an annotation. The caller has already checked image ownership.
func (r *Repository) Create(ctx context.Context, n NewAnnotation) (*Annotation, error) {
	a, err := scanAnnotation(r.db.QueryRow(ctx,
		`INSERT INTO annotations AS a (image_id, label, annotation_type, geometry, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+annotationColumns,
		n.ImageID, n.Label, string(n.Type), n.Geometry, n.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create annotation: %w", err)
	}
	return a, nil
}

// GetOwned fetches an annotation whose image belongs to a dataset owned by userID.
func (r *Repository) GetOwned(ctx context.Context, id, userID string) (*Annotation, error) {
	a, err := scanAnnotation(r.db.QueryRow(ctx,
		`SELECT `+annotationColumns+`
		 FROM annotations a
		 JOIN images i ON i.id = a.image_id
		 JOIN datasets d ON d.id = i.dataset_id
		 WHERE a.id = $1 AND d.user_id = $2`,
		id, userID,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return a, nil
}

// Update sets label and/or geometry on an owned annotation. A nil argument keeps the
// stored value.
func (r *Repository) Update(ctx context.Context, id, userID string, label *string, geometry []byte) (*Annotation, error) {
	var geom any
	if geometry != nil {
		geom = geometry
	}
	a, err := scanAnnotation(r.db.QueryRow(ctx,
		`UPDATE annotations AS a
		 SET label = COALESCE($3, a.label),
		     geometry = COALESCE($4::jsonb, a.geometry),
		     updated_at = NOW()
		 FROM images i, datasets d
		 WHERE a.id = $1 AND i.id = a.image_id AND d.id = i.dataset_id AND d.user_id = $2
		 RETURNING `+annotationColumns,
		id, userID, label, geom,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update annotation: %w", err)
	}
	return a, nil
}

// Delete removes an owned annotation.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM annotations a
		 USING images i, datasets d
		 WHERE a.id = $1 AND i.id = a.image_id AND d.id = i.dataset_id AND d.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
