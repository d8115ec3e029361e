package annotation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/request"
	"github.com/simplrflow/service/internal/response"
)

// Handler holds HTTP handlers for annotation endpoints.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a new annotation Handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("handler", "annotation")}
}

// ListByImage godoc
//
//	@Summary		List annotations of an image
//	@Tags			annotations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Image ID"
//	@Param			skip	query		int		false	"Offset"
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Success		200		{object}	response.Envelope{data=[]Annotation}
//	@Failure		404		{object}	response.Envelope
//	@Router			/images/{id}/annotations [get]
func (h *Handler) ListByImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	offset, limit := request.Pagination(r)

	items, err := h.svc.ListByImage(r.Context(), chi.URLParam(r, "id"), userID, offset, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Page(w, items, offset, limit, len(items))
}

// Create godoc
//
//	@Summary		Create annotation
//	@Description	Geometry shape depends on annotation_type: bbox {x,y,width,height}, polygon {points:[{x,y}]}, point {x,y}.
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateInput	true	"Annotation"
//	@Success		201		{object}	response.Envelope{data=Annotation}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/annotations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var in CreateInput
	if err := request.DecodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	a, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Created(w, a)
}

// Get godoc
//
//	@Summary		Get annotation
//	@Tags			annotations
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Annotation ID"
//	@Success		200	{object}	response.Envelope{data=Annotation}
//	@Failure		404	{object}	response.Envelope
//	@Router			/annotations/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, a)
}

// Update godoc
//
//	@Summary		Update annotation
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string		true	"Annotation ID"
//	@Param			request	body		UpdateInput	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Annotation}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/annotations/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var in UpdateInput
	if err := request.DecodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	a, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), userID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, a)
}

// Delete godoc
//
//	@Summary		Delete annotation
//	@Tags			annotations
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Annotation ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/annotations/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		h.fail(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case IsRejected(err):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrImageNotFound):
		response.NotFound(w, "image not found")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "annotation not found")
	default:
		h.log.Error("annotation request failed", "error", err)
		response.InternalError(w)
	}
}
