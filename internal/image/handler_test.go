package image

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplrflow/service/internal/imaging/imagingtest"
	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
)

type part struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newRouter(f *fixture) http.Handler {
	h := NewHandler(f.svc, f.svc.opts.MaxUploadSize, logger.Nop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), "owner")))
		})
	})
	r.Post("/datasets/{id}/images", h.Upload)
	r.Get("/datasets/{id}/images", h.List)
	r.Get("/images/{id}", h.Get)
	r.Delete("/images/{id}", h.Delete)
	r.Get("/images/{id}/url", h.URL)
	return r
}

func TestUploadHandler(t *testing.T) {
	f := newFixture(t, 2)
	router := newRouter(f)

	body, ct := multipartBody(t,
		part{"a.jpg", "image/jpeg", imagingtest.JPEG(t, 800, 600)},
		part{"b.png", "image/png", imagingtest.PNG(t, 40, 30, 128)},
	)
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+f.dataset+"/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Success bool     `json:"success"`
		Data    []*Image `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.Len(t, env.Data, 2)
	assert.Equal(t, "a.jpg", env.Data[0].Filename)
	assert.Equal(t, "b.png", env.Data[1].Filename)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/"+env.Data[0].ID+"/url?thumbnail=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), *env.Data[0].ThumbnailKey)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datasets/"+f.dataset+"/images", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"annotation_count":0`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/images/"+env.Data[1].ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, f.store.Len())
}

func TestUploadHandlerErrors(t *testing.T) {
	f := newFixture(t, 1)
	router := newRouter(f)

	body, ct := multipartBody(t,
		part{"good.jpg", "image/jpeg", imagingtest.JPEG(t, 64, 64)},
		part{"bad.jpg", "image/jpeg", imagingtest.Corrupt()},
	)
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+f.dataset+"/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad.jpg")
	assert.Zero(t, f.store.Len())

	body, ct = multipartBody(t, part{"a.jpg", "image/jpeg", imagingtest.JPEG(t, 8, 8)})
	req = httptest.NewRequest(http.MethodPost, "/datasets/00000000-0000-0000-0000-000000000000/images", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/datasets/"+f.dataset+"/images", bytes.NewBufferString("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBodyLimitSaturates(t *testing.T) {
	assert.Equal(t, int64(10<<20)*maxFilesPerUpload+multipartMemory, bodyLimit(10<<20))
	assert.Equal(t, int64(math.MaxInt64), bodyLimit(math.MaxInt64/maxFilesPerUpload))
	assert.Equal(t, int64(math.MaxInt64), bodyLimit(math.MaxInt64))
}

func TestUploadWithHugePerFileLimit(t *testing.T) {
	f := newFixture(t, 1)
	f.svc.opts.MaxUploadSize = math.MaxInt64
	router := newRouter(f)

	body, ct := multipartBody(t, part{"a.jpg", "image/jpeg", imagingtest.JPEG(t, 32, 32)})
	req := httptest.NewRequest(http.MethodPost, "/datasets/"+f.dataset+"/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
