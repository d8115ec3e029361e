package image

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/request"
	"github.com/simplrflow/service/internal/response"
)

const (
	// maxFilesPerUpload bounds the request body together with the per-file size limit.
	maxFilesPerUpload = 50
	multipartMemory   = 32 << 20
)

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc           *Service
	maxUploadSize int64
	maxBodySize   int64
	log           *logger.Logger
}

// NewHandler creates a new image Handler. maxUploadSize is the per-file limit in bytes.
func NewHandler(svc *Service, maxUploadSize int64, log *logger.Logger) *Handler {
	return &Handler{
		svc:           svc,
		maxUploadSize: maxUploadSize,
		maxBodySize:   bodyLimit(maxUploadSize),
		log:           log.With("handler", "image"),
	}
}

// bodyLimit bounds a whole upload request, saturating at math.MaxInt64.
func bodyLimit(perFile int64) int64 {
	if perFile > (math.MaxInt64-multipartMemory)/maxFilesPerUpload {
		return math.MaxInt64
	}
	return perFile*maxFilesPerUpload + multipartMemory
}

type urlResponse struct {
	URL string `json:"url"`
}

// Upload godoc
//
//	@Summary		Upload images
//	@Description	Uploads one or more images into a dataset. Either every file is stored or none is.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Dataset ID"
//	@Param			files	formData	file	true	"Image files"
//	@Success		201		{object}	response.Envelope{data=[]Image}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/datasets/{id}/images [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.TooLarge(w, "request body too large")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File["files"]
	if len(headers) > maxFilesPerUpload {
		response.BadRequest(w, fmt.Sprintf("at most %d files per upload", maxFilesPerUpload))
		return
	}

	files := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := h.readPart(fh)
		if err != nil {
			response.BadRequest(w, "could not read uploaded file")
			return
		}
		files = append(files, Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	images, err := h.svc.CreateImages(r.Context(), chi.URLParam(r, "id"), userID, files)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Created(w, images)
}

// readPart reads at most one byte past the limit so the validator can reject oversize files.
func (h *Handler) readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	limit := h.maxUploadSize
	if limit < math.MaxInt64 {
		limit++
	}
	return io.ReadAll(io.LimitReader(f, limit))
}

// List godoc
//
//	@Summary		List images in a dataset
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Dataset ID"
//	@Param			skip	query		int		false	"Offset"
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Success		200		{object}	response.Envelope{data=[]Image}
//	@Failure		404		{object}	response.Envelope
//	@Router			/datasets/{id}/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	offset, limit := request.Pagination(r)

	images, err := h.svc.ListByDataset(r.Context(), chi.URLParam(r, "id"), userID, offset, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Page(w, images, offset, limit, len(images))
}

// Get godoc
//
//	@Summary		Get image
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Image ID"
//	@Success		200	{object}	response.Envelope{data=Image}
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	img, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, img)
}

// Delete godoc
//
//	@Summary		Delete image
//	@Description	Deletes the stored original and thumbnail, then the image and its annotations.
//	@Tags			images
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Image ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := h.svc.DeleteImage(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		h.fail(w, err)
		return
	}
	response.NoContent(w)
}

// URL godoc
//
//	@Summary		Get a presigned image URL
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Image ID"
//	@Param			thumbnail	query		bool	false	"Link the thumbnail instead of the original"
//	@Success		200			{object}	response.Envelope{data=urlResponse}
//	@Failure		404			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/images/{id}/url [get]
func (h *Handler) URL(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	url, err := h.svc.GetAccessURL(r.Context(), chi.URLParam(r, "id"), userID, request.Bool(r, "thumbnail"))
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, urlResponse{URL: url})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var rej *RejectedError
	switch {
	case errors.As(err, &rej):
		response.BadRequest(w, rej.Error())
	case errors.Is(err, ErrDatasetNotFound):
		response.NotFound(w, "dataset not found")
	case errors.Is(err, ErrNoThumbnail):
		response.NotFound(w, "thumbnail not found")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "image not found")
	default:
		h.log.Error("image request failed", "error", err)
		response.InternalError(w)
	}
}
