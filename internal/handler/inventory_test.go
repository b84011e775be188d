package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/middleware"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

type fakeItemStore struct {
	nextID uint64
	items  map[uint64]model.Item
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{nextID: 1, items: map[uint64]model.Item{}}
}

func (s *fakeItemStore) List(ctx context.Context) ([]model.Item, error) {
	out := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *fakeItemStore) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return model.Item{}, repository.ErrNotFound
	}
	return it, nil
}

func (s *fakeItemStore) Create(ctx context.Context, it model.Item) (model.Item, error) {
	for _, have := range s.items {
		if have.Key() == it.Key() {
			return model.Item{}, repository.ErrConflict
		}
	}
	it.ID = s.nextID
	s.nextID++
	s.items[it.ID] = it
	return it, nil
}

func (s *fakeItemStore) Update(ctx context.Context, it model.Item) (model.Item, error) {
	if _, ok := s.items[it.ID]; !ok {
		return model.Item{}, repository.ErrNotFound
	}
	s.items[it.ID] = it
	return it, nil
}

func (s *fakeItemStore) Delete(ctx context.Context, id uint64) error {
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// fakeInvCache stores raw JSON per key so tests can observe whether a
// mutation dropped the cached listing.
type fakeInvCache struct {
	entries map[string][]byte
}

func newFakeInvCache() *fakeInvCache { return &fakeInvCache{entries: map[string][]byte{}} }

func (f *fakeInvCache) GetRaw(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := f.entries[key]
	return raw, ok
}

func (f *fakeInvCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	f.entries[key] = raw
}

func (f *fakeInvCache) Invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		delete(f.entries, k)
	}
}

type noopAudit struct{}

func (noopAudit) Record(ctx context.Context, actor, action, category, targetID, details string) error {
	return nil
}

func invCtx(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetIdentity(c, model.Identity{ID: 1, Username: "관리자", Role: model.RoleAdmin})
	return c, rec
}

// A mutation must drop the cached listing so the next read reflects it.
func TestInventory_MutationInvalidatesCache(t *testing.T) {
	store := newFakeItemStore()
	cch := newFakeInvCache()
	h := NewInventoryHandler(store, cch, noopAudit{})

	c, rec := invCtx(t, http.MethodGet, "/inventory", "")
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	_, warm := cch.GetRaw(context.Background(), cache.KeyInventory)
	require.True(t, warm, "listing should have warmed the cache")

	c, rec = invCtx(t, http.MethodPost, "/inventory", `{"name":"Pipe","size":"100mm","quantity":"10"}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	_, stale := cch.GetRaw(context.Background(), cache.KeyInventory)
	assert.False(t, stale, "create must invalidate the cached listing")

	c, rec = invCtx(t, http.MethodGet, "/inventory", "")
	require.NoError(t, h.List(c))
	var listed []model.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Pipe", listed[0].Name)
	assert.True(t, decimal.NewFromInt(10).Equal(listed[0].Quantity))
}

func TestInventory_ListServesCacheVerbatimOnHit(t *testing.T) {
	store := newFakeItemStore()
	cch := newFakeInvCache()
	cch.entries[cache.KeyInventory] = []byte(`[{"name":"cached"}]`)
	h := NewInventoryHandler(store, cch, noopAudit{})

	c, rec := invCtx(t, http.MethodGet, "/inventory", "")
	require.NoError(t, h.List(c))
	assert.JSONEq(t, `[{"name":"cached"}]`, rec.Body.String())
}

func TestInventory_CreateDuplicateConflicts(t *testing.T) {
	store := newFakeItemStore()
	h := NewInventoryHandler(store, newFakeInvCache(), noopAudit{})

	body := `{"name":"Pipe","size":"100mm","quantity":"10"}`
	c, rec := invCtx(t, http.MethodPost, "/inventory", body)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = invCtx(t, http.MethodPost, "/inventory", body)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInventory_CreateDefaults(t *testing.T) {
	store := newFakeItemStore()
	h := NewInventoryHandler(store, newFakeInvCache(), noopAudit{})

	c, rec := invCtx(t, http.MethodPost, "/inventory", `{"name":"Bolt"}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	it := store.items[1]
	assert.Equal(t, "-", it.Size)
	assert.Equal(t, "-", it.Length)
	assert.Equal(t, "기타", it.Category)
	assert.True(t, it.AlertEnabled)
	assert.True(t, decimal.NewFromInt(10).Equal(it.AlertThreshold))
	assert.Equal(t, "관리자", it.LastUpdatedBy)
}

// A partial update that only touches alert fields must not move the
// stored balance.
func TestInventory_UpdateWithoutQuantityKeepsBalance(t *testing.T) {
	store := newFakeItemStore()
	h := NewInventoryHandler(store, newFakeInvCache(), noopAudit{})

	c, rec := invCtx(t, http.MethodPost, "/inventory", `{"name":"Pipe","size":"100mm","quantity":"10"}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = invCtx(t, http.MethodPut, "/inventory/1", `{"name":"Pipe","alertEnabled":false}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	it := store.items[1]
	assert.True(t, decimal.NewFromInt(10).Equal(it.Quantity), "quantity should stay 10, got %s", it.Quantity)
	assert.False(t, it.AlertEnabled)
}

func TestInventory_UpdateWithQuantityOverwritesBalance(t *testing.T) {
	store := newFakeItemStore()
	h := NewInventoryHandler(store, newFakeInvCache(), noopAudit{})

	c, rec := invCtx(t, http.MethodPost, "/inventory", `{"name":"Pipe","size":"100mm","quantity":"10"}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = invCtx(t, http.MethodPut, "/inventory/1", `{"name":"Pipe","quantity":"-2.5"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, decimal.NewFromFloat(-2.5).Equal(store.items[1].Quantity))
}

func TestInventory_DeleteMissing404(t *testing.T) {
	h := NewInventoryHandler(newFakeItemStore(), newFakeInvCache(), noopAudit{})

	c, rec := invCtx(t, http.MethodDelete, "/inventory/9", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
