package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Image is one uploaded picture with the keys of its stored original and thumbnail.
type Image struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	DatasetID       string    `json:"dataset_id"`
	StorageKey      string    `json:"storage_key"`
	ThumbnailKey    *string   `json:"thumbnail_key"`
	ContentType     string    `json:"content_type"`
	Width           *int      `json:"width"`
	Height          *int      `json:"height"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AnnotationCount int       `json:"annotation_count"`
}

// NewImage is a staged metadata row whose objects are already in storage.
type NewImage struct {
	Filename     string
	DatasetID    string
	StorageKey   string
	ThumbnailKey *string
	ContentType  string
	Width        *int
	Height       *int
}

const imageColumns = `i.id, i.filename, i.dataset_id, i.storage_key, i.thumbnail_key,
	i.content_type, i.width, i.height, i.created_at, i.updated_at,
	(SELECT COUNT(*) FROM annotations a WHERE a.image_id = i.id)`

// Repository handles image metadata. Reads and deletes join through datasets so only the
// owner of the parent dataset sees a row.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new image Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanImage(row pgx.Row) (*Image, error) {
	img := &Image{}
	err := row.Scan(
		&img.ID, &img.Filename, &img.DatasetID, &img.StorageKey, &img.ThumbnailKey,
		&img.ContentType, &img.Width, &img.Height, &img.CreatedAt, &img.UpdatedAt,
		&img.AnnotationCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return img, err
}

// DatasetOwned reports whether datasetID exists and belongs to userID.
func (r *Repository) DatasetOwned(ctx context.Context, datasetID, userID string) (bool, error) {
	var owned bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM datasets WHERE id = $1 AND user_id = $2)`,
		datasetID, userID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check dataset owner: %w", err)
	}
	return owned, nil
}

// CreateBatch inserts every staged row in one transaction and returns them in input order.
// Nothing is written unless all inserts succeed.
func (r *Repository) CreateBatch(ctx context.Context, rows []NewImage) ([]*Image, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	out := make([]*Image, 0, len(rows))
	for _, n := range rows {
		img := &Image{}
		err := tx.QueryRow(ctx,
			`INSERT INTO images (filename, dataset_id, storage_key, thumbnail_key, content_type, width, height)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, filename, dataset_id, storage_key, thumbnail_key,
			           content_type, width, height, created_at, updated_at`,
			n.Filename, n.DatasetID, n.StorageKey, n.ThumbnailKey, n.ContentType, n.Width, n.Height,
		).Scan(
			&img.ID, &img.Filename, &img.DatasetID, &img.StorageKey, &img.ThumbnailKey,
			&img.ContentType, &img.Width, &img.Height, &img.CreatedAt, &img.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert image %q: %w", n.Filename, err)
		}
		out = append(out, img)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit images: %w", err)
	}
	return out, nil
}

// GetOwned fetches an image whose dataset belongs to userID.
func (r *Repository) GetOwned(ctx context.Context, id, userID string) (*Image, error) {
	img, err := scanImage(r.db.QueryRow(ctx,
		`SELECT `+imageColumns+`
		 FROM images i
		 JOIN datasets d ON d.id = i.dataset_id
		 WHERE i.id = $1 AND d.user_id = $2`,
		id, userID,
	))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// ListByDataset returns a page of a dataset's images, oldest first.
func (r *Repository) ListByDataset(ctx context.Context, datasetID, userID string, offset, limit int) ([]*Image, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+imageColumns+`
		 FROM images i
		 JOIN datasets d ON d.id = i.dataset_id
		 WHERE i.dataset_id = $1 AND d.user_id = $2
		 ORDER BY i.created_at, i.id
		 OFFSET $3 LIMIT $4`,
		datasetID, userID, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	out := make([]*Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return out, nil
}

// Delete removes an image owned through its dataset by userID. Annotations cascade.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM images i
		 USING datasets d
		 WHERE i.id = $1 AND i.dataset_id = d.id AND d.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
