package dataset

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/request"
	"github.com/simplrflow/service/internal/response"
)

// Handler holds HTTP handlers for dataset endpoints.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a new dataset Handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log.With("handler", "dataset")}
}

type createRequest struct {
	Name        string  `json:"name"        example:"street-scenes"`
	Description *string `json:"description" example:"Dashcam frames, daytime"`
}

type updateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Create godoc
//
//	@Summary		Create dataset
//	@Tags			datasets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createRequest	true	"Dataset"
//	@Success		201		{object}	response.Envelope{data=Dataset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/datasets [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req createRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	d, err := h.svc.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Created(w, d)
}

// List godoc
//
//	@Summary		List datasets
//	@Tags			datasets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			skip	query		int	false	"Offset"
//	@Param			limit	query		int	false	"Page size (max 100)"
//	@Success		200		{object}	response.Envelope{data=[]Dataset}
//	@Failure		500		{object}	response.Envelope
//	@Router			/datasets [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	offset, limit := request.Pagination(r)

	items, err := h.svc.List(r.Context(), userID, offset, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Page(w, items, offset, limit, len(items))
}

// Get godoc
//
//	@Summary		Get dataset
//	@Tags			datasets
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Dataset ID"
//	@Success		200	{object}	response.Envelope{data=Dataset}
//	@Failure		404	{object}	response.Envelope
//	@Router			/datasets/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, d)
}

// Update godoc
//
//	@Summary		Update dataset
//	@Description	Only the provided fields are changed.
//	@Tags			datasets
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Dataset ID"
//	@Param			request	body		updateRequest	true	"Fields to change"
//	@Success		200		{object}	response.Envelope{data=Dataset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/datasets/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req updateRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	d, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), userID, req.Name, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, d)
}

// Delete godoc
//
//	@Summary		Delete dataset
//	@Description	Deletes the dataset with all of its images, annotations and stored objects.
//	@Tags			datasets
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Dataset ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/datasets/{id} [delete]
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
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "dataset not found")
	case errors.Is(err, ErrInvalidName):
		response.BadRequest(w, err.Error())
	default:
		h.log.Error("dataset request failed", "error", err)
		response.InternalError(w)
	}
}
