package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/shop-backend/internal/auth"
)

func newProductServer(t *testing.T, h *ProductsHandler, id auth.Identity) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(priv chi.Router) {
		priv.Use(withIdentity(id))
		h.RegisterAdmin(priv)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestListProducts(t *testing.T) {
	cat := newFakeCatalog()
	_, err := cat.Create(context.Background(), "SKU-1", "Widget", 2500, 10)
	require.NoError(t, err)

	h := &ProductsHandler{Store: cat}
	srv := newProductServer(t, h, userIdentity())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/product", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["products"].([]any), 1)
}

func TestGetProduct_NotFound(t *testing.T) {
	h := &ProductsHandler{Store: newFakeCatalog()}
	srv := newProductServer(t, h, userIdentity())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/product/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product Not Found", body["message"])
}

func TestCreateProduct(t *testing.T) {
	cat := newFakeCatalog()
	h := &ProductsHandler{Store: cat}
	srv := newProductServer(t, h, adminIdentity())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/product/new",
		map[string]any{"sku": "SKU-9", "name": "Gadget", "price": 19.99, "stock": 3})

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := body["product"].(map[string]any)
	assert.Equal(t, "SKU-9", p["sku"])
	assert.Equal(t, float64(1999), p["price_cents"])
	assert.Equal(t, float64(3), p["stock"])
}

func TestCreateProduct_RequiresAdmin(t *testing.T) {
	h := &ProductsHandler{Store: newFakeCatalog()}
	srv := newProductServer(t, h, userIdentity())

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/product/new",
		map[string]any{"sku": "SKU-9", "name": "Gadget", "price": 19.99, "stock": 3})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateProduct_RejectsBadInput(t *testing.T) {
	h := &ProductsHandler{Store: newFakeCatalog()}
	srv := newProductServer(t, h, adminIdentity())

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/product/new",
		map[string]any{"sku": "", "name": "Gadget", "price": 19.99, "stock": 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
