package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/simplrflow/service/internal/logger"
)

var (
	// ErrNotFound is returned when an annotation does not exist or is not visible to the caller.
	ErrNotFound = errors.New("annotation not found")
	// ErrImageNotFound is returned when the target image is missing or not owned by the caller.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidLabel is returned for an empty label.
	ErrInvalidLabel = errors.New("label must not be empty")
)

// Store is the persistence the annotation service needs.
type Store interface {
	ImageOwned(ctx context.Context, imageID, userID string) (bool, error)
	ListByImage(ctx context.Context, imageID, userID string, offset, limit int) ([]*Annotation, error)
	Create(ctx context.Context, n NewAnnotation) (*Annotation, error)
	GetOwned(ctx context.Context, id, userID string) (*Annotation, error)
	Update(ctx context.Context, id, userID string, label *string, geometry []byte) (*Annotation, error)
	Delete(ctx context.Context, id, userID string) error
}

// CreateInput is a client request to annotate an image.
type CreateInput struct {
	ImageID  string          `json:"image_id"`
	Label    string          `json:"label"`
	Type     string          `json:"annotation_type"`
	Geometry json.RawMessage `json:"geometry" swaggertype:"object"`
}

// UpdateInput changes label and/or geometry. Omitted fields are kept.
type UpdateInput struct {
	Label    *string         `json:"label,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty" swaggertype:"object"`
}

// Service contains business logic for annotations.
type Service struct {
	repo Store
	log  *logger.Logger
}

// NewService creates a new annotation Service.
func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log.With("service", "AnnotationService")}
}

// Create validates in and stores it with userID as creator.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Annotation, error) {
	if !validID(in.ImageID) {
		return nil, ErrImageNotFound
	}
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, ErrInvalidLabel
	}
	kind, err := ParseType(in.Type)
	if err != nil {
		return nil, err
	}
	geometry, err := canonical(kind, in.Geometry)
	if err != nil {
		return nil, err
	}

	owned, err := s.repo.ImageOwned(ctx, in.ImageID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrImageNotFound
	}

	return s.repo.Create(ctx, NewAnnotation{
		ImageID:   in.ImageID,
		Label:     label,
		Type:      kind,
		Geometry:  geometry,
		CreatedBy: userID,
	})
}

// ListByImage returns a page of an image's annotations.
func (s *Service) ListByImage(ctx context.Context, imageID, userID string, offset, limit int) ([]*Annotation, error) {
	if !validID(imageID) {
		return nil, ErrImageNotFound
	}
	owned, err := s.repo.ImageOwned(ctx, imageID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrImageNotFound
	}
	return s.repo.ListByImage(ctx, imageID, userID, offset, limit)
}

// Get returns one annotation.
func (s *Service) Get(ctx context.Context, id, userID string) (*Annotation, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return s.repo.GetOwned(ctx, id, userID)
}

// Update applies in. New geometry is validated against the stored annotation type.
func (s *Service) Update(ctx context.Context, id, userID string, in UpdateInput) (*Annotation, error) {
	current, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var label *string
	if in.Label != nil {
		trimmed := strings.TrimSpace(*in.Label)
		if trimmed == "" {
			return nil, ErrInvalidLabel
		}
		label = &trimmed
	}

	var geometry []byte
	if in.Geometry != nil {
		geometry, err = canonical(current.Type, in.Geometry)
		if err != nil {
			return nil, err
		}
	}

	return s.repo.Update(ctx, id, userID, label, geometry)
}

// Delete removes one annotation.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id, userID)
}

// IsRejected reports whether err was caused by invalid client input.
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidGeometry) || errors.Is(err, ErrInvalidLabel)
}

// canonical validates raw and re-encodes it so only the fields of the typed shape are stored.
func canonical(kind Type, raw json.RawMessage) ([]byte, error) {
	g, err := ParseGeometry(kind, raw)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return out, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
