package user

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/response"
)

// Store is the persistence the user service needs.
type Store interface {
	Ensure(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*User, error)
}

// Service contains business logic for user management.
type Service struct {
	repo Store
	log  *logger.Logger

	// known remembers ids already ensured by this process so most requests skip the insert.
	known sync.Map
}

// NewService creates a new user Service.
func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log.With("service", "UserService")}
}

// Ensure records id as a known user.
func (s *Service) Ensure(ctx context.Context, id string) error {
	if _, ok := s.known.Load(id); ok {
		return nil
	}
	if err := s.repo.Ensure(ctx, id); err != nil {
		return err
	}
	s.known.Store(id, struct{}{})
	return nil
}

// GetByID returns a user by id.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// IsNotFound returns true when the error indicates a user was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RequireUser makes sure the authenticated identity has a users row, so datasets and
// annotations can reference it. Must run after middleware.RequireAuth.
func RequireUser(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.UserID(r.Context())
			if !ok {
				response.Unauthorized(w, "unauthorized")
				return
			}
			if err := svc.Ensure(r.Context(), id); err != nil {
				svc.log.Error("ensure user failed", "error", err)
				response.InternalError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
