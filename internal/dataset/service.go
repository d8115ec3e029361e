package dataset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/storage"
)

const maxNameLength = 255

// ErrInvalidName is returned when a dataset name is empty or longer than 255 characters.
var ErrInvalidName = errors.New("name must be between 1 and 255 characters")

// Store is the persistence the dataset service needs.
type Store interface {
	Create(ctx context.Context, userID, name string, description *string) (*Dataset, error)
	GetOwned(ctx context.Context, id, userID string) (*Dataset, error)
	List(ctx context.Context, userID string, offset, limit int) ([]*Dataset, error)
	Update(ctx context.Context, id, userID string, name, description *string) (*Dataset, error)
	ObjectKeys(ctx context.Context, id, userID string) ([]string, error)
	Delete(ctx context.Context, id, userID string) error
}

// Service contains business logic for datasets.
type Service struct {
	repo  Store
	store storage.Storage
	log   *logger.Logger
}

// NewService creates a new dataset Service.
func NewService(repo Store, store storage.Storage, log *logger.Logger) *Service {
	return &Service{repo: repo, store: store, log: log.With("service", "DatasetService")}
}

// Create registers a new dataset for userID.
func (s *Service) Create(ctx context.Context, userID, name string, description *string) (*Dataset, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, userID, name, description)
}

// Get returns the dataset if userID owns it.
func (s *Service) Get(ctx context.Context, id, userID string) (*Dataset, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetOwned(ctx, id, userID)
}

// List returns a page of userID's datasets.
func (s *Service) List(ctx context.Context, userID string, offset, limit int) ([]*Dataset, error) {
	return s.repo.List(ctx, userID, offset, limit)
}

// Update applies a partial update. Nil fields are left unchanged.
func (s *Service) Update(ctx context.Context, id, userID string, name, description *string) (*Dataset, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if err := validateName(trimmed); err != nil {
			return nil, err
		}
		name = &trimmed
	}
	return s.repo.Update(ctx, id, userID, name, description)
}

// Delete removes the dataset, its images and annotations. Storage objects of every image
// are deleted first on a best-effort basis; a failed object delete is logged and leaked.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if _, err := s.repo.GetOwned(ctx, id, userID); err != nil {
		return err
	}

	keys, err := s.repo.ObjectKeys(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("collect object keys: %w", err)
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("storage delete failed, object leaked", "dataset_id", id, "key", key, "error", err)
		}
	}

	return s.repo.Delete(ctx, id, userID)
}

// IsNotFound returns true when the error indicates a dataset was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return ErrInvalidName
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
