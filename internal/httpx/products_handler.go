package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplite/shop-backend/internal/auth"
	"github.com/shoplite/shop-backend/internal/catalog"
)

// CatalogStore is what the product handlers need from the catalog repo.
type CatalogStore interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, error)
	Create(ctx context.Context, sku, name string, priceCents, stock int) (catalog.Product, error)
}

type ProductsHandler struct {
	Store CatalogStore
}

// RegisterPublic wires the unauthenticated catalog routes.
func (h *ProductsHandler) RegisterPublic(r chi.Router) {
	r.Get("/api/v1/product", h.listProducts)
	r.Get("/api/v1/product/{id}", h.getProduct)
}

// RegisterAdmin wires the catalog mutation route; r must carry the auth
// middleware.
func (h *ProductsHandler) RegisterAdmin(r chi.Router) {
	r.With(auth.RequireAdmin).Post("/api/v1/product/new", h.createProduct)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.List(ctx)
	if err != nil {
		slog.Error("list products", "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "products": ps})
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		fail(w, http.StatusNotFound, "Product Not Found")
		return
	}
	if err != nil {
		slog.Error("get product", "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

type createProductReq struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.SKU == "" || req.Name == "" || req.Price < 0 || req.Stock < 0 {
		fail(w, http.StatusBadRequest, "Missing or invalid product fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Store.Create(ctx, req.SKU, req.Name, toCents(req.Price), req.Stock)
	if err != nil {
		slog.Error("create product", "sku", req.SKU, "err", err)
		fail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "product": p})
}
