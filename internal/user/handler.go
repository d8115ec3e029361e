package user

import (
	"net/http"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/response"
)

// Handler serves the caller's own identity.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("handler", "user")}
}

// GetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the authenticated identity and how many datasets it owns.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), userID)
	switch {
	case h.svc.IsNotFound(err):
		response.NotFound(w, "user not found")
	case err != nil:
		h.log.Error("get current user failed", "user_id", userID, "error", err)
		response.InternalError(w)
	default:
		response.OK(w, u)
	}
}
