// Package image ingests uploaded pictures into object storage and keeps their metadata
// consistent with the stored objects.
package image

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simplrflow/service/internal/imaging"
	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/storage"
)

// Store is the metadata persistence the image service needs.
type Store interface {
	DatasetOwned(ctx context.Context, datasetID, userID string) (bool, error)
	CreateBatch(ctx context.Context, rows []NewImage) ([]*Image, error)
	GetOwned(ctx context.Context, id, userID string) (*Image, error)
	ListByDataset(ctx context.Context, datasetID, userID string, offset, limit int) ([]*Image, error)
	Delete(ctx context.Context, id, userID string) error
}

// Upload is one file of a multi-file upload.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Options tunes ingestion.
type Options struct {
	MaxUploadSize int64
	AllowedTypes  []string
	PresignTTL    time.Duration
	Concurrency   int
}

// Service orchestrates image creation, access and deletion.
type Service struct {
	repo    Store
	store   storage.Storage
	deriver *imaging.Deriver
	opts    Options
	log     *logger.Logger
}

// NewService creates a new image Service.
func NewService(repo Store, store storage.Storage, deriver *imaging.Deriver, opts Options, log *logger.Logger) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = time.Hour
	}
	return &Service{
		repo:    repo,
		store:   store,
		deriver: deriver,
		opts:    opts,
		log:     log.With("service", "ImageService"),
	}
}

// CreateImages ingests every file into storage and commits their metadata in one
// transaction. The batch is all or nothing: on any failure every object the batch wrote is
// deleted before the error is returned.
func (s *Service) CreateImages(ctx context.Context, datasetID, userID string, files []Upload) ([]*Image, error) {
	if !validID(datasetID) {
		return nil, ErrDatasetNotFound
	}
	if len(files) == 0 {
		return nil, &RejectedError{Reason: "no files uploaded"}
	}
	owned, err := s.repo.DatasetOwned(ctx, datasetID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrDatasetNotFound
	}

	written := &ledger{}
	staged := make([]NewImage, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			row, err := s.ingest(gctx, datasetID, f, written)
			if err != nil {
				return err
			}
			staged[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.compensate(ctx, written.keys(), "batch aborted")
		return nil, err
	}

	images, err := s.repo.CreateBatch(ctx, staged)
	if err != nil {
		s.compensate(ctx, written.keys(), "metadata commit failed")
		return nil, fmt.Errorf("commit image metadata: %w", err)
	}

	s.log.Info("images created", "dataset_id", datasetID, "count", len(images))
	return images, nil
}

// ingest runs one file from Received to MetadataStaged. Every key is recorded in written
// before its put so a put that fails after reaching the store is still compensated.
func (s *Service) ingest(ctx context.Context, datasetID string, f Upload, written *ledger) (NewImage, error) {
	state := Received
	fail := func(err error) (NewImage, error) {
		s.log.Debug("ingest failed", "filename", f.Filename, "state", state.String(), "error", err)
		return NewImage{}, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if !utf8.ValidString(f.Filename) || strings.ContainsRune(f.Filename, 0) {
		return fail(&RejectedError{Filename: f.Filename, Reason: "filename must be valid UTF-8 without NUL bytes"})
	}
	if !s.allowed(f.ContentType) {
		return fail(&RejectedError{Filename: f.Filename, Reason: fmt.Sprintf("content type %q is not allowed", f.ContentType)})
	}
	decoded, err := imaging.Decode(f.Data, s.opts.MaxUploadSize)
	if err != nil {
		return fail(&RejectedError{Filename: f.Filename, Reason: err.Error(), Err: err})
	}
	format := decoded.Format
	state = Validated

	originalKey := imaging.GenerateKey(imaging.OriginalPrefix, imaging.ExtensionForFormat(format))
	state = KeyedOriginal
	thumbKey := imaging.GenerateKey(imaging.ThumbnailPrefix, "jpg")
	state = KeyedThumbnail

	thumb, err := s.deriver.Render(decoded.Image)
	if err != nil {
		return fail(&RejectedError{Filename: f.Filename, Reason: "thumbnail could not be derived", Err: err})
	}
	state = ThumbnailDerived

	written.add(originalKey)
	if err := s.store.Put(ctx, originalKey, f.Data, imaging.ContentTypeForFormat(format)); err != nil {
		return fail(fmt.Errorf("store original of %q: %w", f.Filename, err))
	}
	state = OriginalStored

	written.add(thumbKey)
	if err := s.store.Put(ctx, thumbKey, thumb, imaging.ThumbnailContentType); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), originalKey); derr != nil {
			s.log.Error("compensating delete failed, object leaked", "key", originalKey, "error", derr)
		} else {
			written.forget(originalKey)
		}
		return fail(fmt.Errorf("store thumbnail of %q: %w", f.Filename, err))
	}
	state = ThumbnailStored

	row := NewImage{
		Filename:     f.Filename,
		DatasetID:    datasetID,
		StorageKey:   originalKey,
		ThumbnailKey: &thumbKey,
		ContentType:  imaging.ContentTypeForFormat(format),
	}
	w, h := decoded.Width, decoded.Height
	row.Width, row.Height = &w, &h
	state = MetadataStaged
	return row, nil
}

// compensate deletes keys on a context detached from the request so a cancelled caller
// does not leave objects behind. Failures are logged and tolerated.
func (s *Service) compensate(ctx context.Context, keys []string, reason string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Error("compensating delete failed, object leaked", "key", key, "reason", reason, "error", err)
		}
	}
	if len(keys) > 0 {
		s.log.Warn("batch rolled back", "reason", reason, "objects", len(keys))
	}
}

func (s *Service) allowed(contentType string) bool {
	if contentType == "" || len(s.opts.AllowedTypes) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range s.opts.AllowedTypes {
		if strings.EqualFold(t, mediaType) {
			return true
		}
	}
	return false
}

// Get returns an image owned through its dataset by userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*Image, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetOwned(ctx, id, userID)
}

// ListByDataset returns a page of a dataset's images.
func (s *Service) ListByDataset(ctx context.Context, datasetID, userID string, offset, limit int) ([]*Image, error) {
	if !validID(datasetID) {
		return nil, ErrDatasetNotFound
	}
	owned, err := s.repo.DatasetOwned(ctx, datasetID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrDatasetNotFound
	}
	return s.repo.ListByDataset(ctx, datasetID, userID, offset, limit)
}

// DeleteImage removes the stored original and thumbnail, then the metadata row. A failed
// object delete is logged and the row is removed anyway.
func (s *Service) DeleteImage(ctx context.Context, id, userID string) error {
	img, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	keys := []string{img.StorageKey}
	if img.ThumbnailKey != nil && *img.ThumbnailKey != "" {
		keys = append(keys, *img.ThumbnailKey)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("storage delete failed, object leaked", "image_id", id, "key", key, "error", err)
		}
	}

	return s.repo.Delete(ctx, id, userID)
}

// GetAccessURL returns a presigned URL for the original, or for the thumbnail when
// thumbnail is true.
func (s *Service) GetAccessURL(ctx context.Context, id, userID string, thumbnail bool) (string, error) {
	img, err := s.Get(ctx, id, userID)
	if err != nil {
		return "", err
	}

	key := img.StorageKey
	if thumbnail {
		if img.ThumbnailKey == nil || *img.ThumbnailKey == "" {
			return "", ErrNoThumbnail
		}
		key = *img.ThumbnailKey
	}

	url, err := s.store.Presign(ctx, key, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return url, nil
}

// IsNotFound returns true for a missing image or dataset.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDatasetNotFound)
}

// ledger records every key a batch may have written.
type ledger struct {
	mu   sync.Mutex
	list []string
}

func (l *ledger) add(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list = append(l.list, key)
}

func (l *ledger) forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, k := range l.list {
		if k == key {
			l.list = append(l.list[:i], l.list[i+1:]...)
			return
		}
	}
}

func (l *ledger) keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.list...)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
