package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplrflow/service/internal/logger"
	"github.com/simplrflow/service/internal/middleware"
	"github.com/simplrflow/service/internal/storage/storagetest"
)

type memStore struct {
	mu       sync.Mutex
	datasets map[string]*Dataset
	keys     map[string][]string
}

func newMemStore() *memStore {
	return &memStore{datasets: map[string]*Dataset{}, keys: map[string][]string{}}
}

func (m *memStore) Create(_ context.Context, userID, name string, description *string) (*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	d := &Dataset{ID: uuid.NewString(), Name: name, Description: description, UserID: userID, CreatedAt: now, UpdatedAt: now}
	m.datasets[d.ID] = d
	return d, nil
}

func (m *memStore) GetOwned(_ context.Context, id, userID string) (*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok || d.UserID != userID {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *memStore) List(_ context.Context, userID string, offset, limit int) ([]*Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Dataset
	for _, d := range m.datasets {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	if offset >= len(out) {
		return []*Dataset{}, nil
	}
	out = out[offset:]
	return out[:min(limit, len(out))], nil
}

func (m *memStore) Update(ctx context.Context, id, userID string, name, description *string) (*Dataset, error) {
	d, err := m.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if name != nil {
		d.Name = *name
	}
	if description != nil {
		d.Description = description
	}
	return d, nil
}

func (m *memStore) ObjectKeys(_ context.Context, id, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[id], nil
}

func (m *memStore) Delete(ctx context.Context, id, userID string) error {
	if _, err := m.GetOwned(ctx, id, userID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.datasets, id)
	delete(m.keys, id)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateValidatesName(t *testing.T) {
	svc := NewService(newMemStore(), storagetest.NewFaulty(), logger.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Create(ctx, "u1", strings.Repeat("é", 256), nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	d, err := svc.Create(ctx, "u1", "  "+strings.Repeat("é", 255)+" ", strPtr("desc"))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 255), d.Name)
	assert.Equal(t, "desc", *d.Description)
}

func TestOwnershipIsolation(t *testing.T) {
	svc := NewService(newMemStore(), storagetest.NewFaulty(), logger.Nop())
	ctx := context.Background()

	d, err := svc.Create(ctx, "owner", "cats", nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, d.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, d.ID, "intruder", strPtr("dogs"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, d.ID, "intruder"), ErrNotFound)

	got, err := svc.Get(ctx, d.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "cats", got.Name)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	svc := NewService(newMemStore(), storagetest.NewFaulty(), logger.Nop())
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-uuid", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "not-a-uuid", "u1"), ErrNotFound)
}

func TestUpdateKeepsOmittedFields(t *testing.T) {
	svc := NewService(newMemStore(), storagetest.NewFaulty(), logger.Nop())
	ctx := context.Background()

	d, err := svc.Create(ctx, "u1", "cats", strPtr("first"))
	require.NoError(t, err)

	got, err := svc.Update(ctx, d.ID, "u1", nil, strPtr("second"))
	require.NoError(t, err)
	assert.Equal(t, "cats", got.Name)
	assert.Equal(t, "second", *got.Description)

	_, err = svc.Update(ctx, d.ID, "u1", strPtr(""), nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDeleteRemovesStoredObjects(t *testing.T) {
	repo := newMemStore()
	store := storagetest.NewFaulty()
	svc := NewService(repo, store, logger.Nop())
	ctx := context.Background()

	d, err := svc.Create(ctx, "u1", "cats", nil)
	require.NoError(t, err)
	keys := []string{"images/a.jpg", "thumbnails/a.jpg", "images/b.png"}
	for _, k := range keys {
		require.NoError(t, store.Put(ctx, k, []byte("x"), "image/jpeg"))
	}
	repo.keys[d.ID] = keys

	require.NoError(t, svc.Delete(ctx, d.ID, "u1"))
	assert.Zero(t, store.Len())
	_, err = svc.Get(ctx, d.ID, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteToleratesStorageFailures(t *testing.T) {
	repo := newMemStore()
	store := storagetest.NewFaulty()
	store.FailDeletes()
	svc := NewService(repo, store, logger.Nop())
	ctx := context.Background()

	d, err := svc.Create(ctx, "u1", "cats", nil)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "images/a.jpg", []byte("x"), "image/jpeg"))
	repo.keys[d.ID] = []string{"images/a.jpg"}

	require.NoError(t, svc.Delete(ctx, d.ID, "u1"))
	assert.Equal(t, []string{"images/a.jpg"}, store.Deletes())
	assert.Equal(t, 1, store.Len(), "object leaks but metadata is gone")
	_, err = svc.Get(ctx, d.ID, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerStatusCodes(t *testing.T) {
	svc := NewService(newMemStore(), storagetest.NewFaulty(), logger.Nop())
	h := NewHandler(svc, logger.Nop())

	r := chi.NewRouter()
	r.Post("/datasets", h.Create)
	r.Get("/datasets/{id}", h.Get)
	r.Delete("/datasets/{id}", h.Delete)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), "u1"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/datasets", `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/datasets", `{"name":"a","extra":1}`).Code)

	rec := do(http.MethodPost, "/datasets", `{"name":"cats"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"cats"`)
	assert.Contains(t, rec.Body.String(), `"image_count":0`)
	assert.Contains(t, rec.Body.String(), `"annotation_count":0`)

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/datasets/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodDelete, "/datasets/nope", "").Code)
}
