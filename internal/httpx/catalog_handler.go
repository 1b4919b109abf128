package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/catalog"
	"github.com/elitestore/go-storefront/internal/events"
	kafkax "github.com/elitestore/go-storefront/internal/kafka"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type CatalogStore interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (catalog.Category, error)
	UpdateCategory(ctx context.Context, id int64, p catalog.CategoryPatch) (catalog.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	Products(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	ProductWithCategory(ctx context.Context, id int64) (catalog.ProductWithCategory, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	UpdateProduct(ctx context.Context, id int64, p catalog.ProductPatch) (catalog.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CatalogHandler struct {
	Store    CatalogStore
	Redis    *redis.Client
	Producer Publisher // catalog.changed
	Service  string
}

func (h *CatalogHandler) RegisterPublic(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) RegisterAdmin(r chi.Router) {
	r.Post("/categories", h.createCategory)
	r.Put("/categories/{id}", h.updateCategory)
	r.Delete("/categories/{id}", h.deleteCategory)
	// back-office listing includes inactive products
	r.Get("/admin/products", h.listAllProducts)
	r.Post("/products", h.createProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)
}

// --- categories ---

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeyCacheCategories).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	cats, err := h.Store.Categories(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, redisx.KeyCacheCategories, string(kafkax.MustMarshal(cats)), redisx.TTLCache).Err()
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Store.CreateCategory(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "category", c.ID, events.ActionCreated)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var p catalog.CategoryPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Store.UpdateCategory(ctx, id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "category", c.ID, events.ActionUpdated)
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.DeleteCategory(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "category", id, events.ActionDeleted)
	w.WriteHeader(http.StatusNoContent)
}

// --- products ---

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// the featured strip on the storefront home is the hottest listing;
	// it alone gets a cache entry
	cacheable := h.Redis != nil && f.FeaturedOnly && f.CategoryID == nil &&
		f.Search == "" && f.MinPrice == nil && f.MaxPrice == nil
	cacheKey := fmt.Sprintf(redisx.KeyCacheFeatured, f.Limit, f.Offset)
	if cacheable {
		if s, err := h.Redis.Get(ctx, cacheKey).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	page, err := h.Store.Products(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	if cacheable {
		_ = h.Redis.Set(ctx, cacheKey, string(kafkax.MustMarshal(page)), redisx.TTLCache).Err()
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) listAllProducts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f.IncludeInactive = true

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	page, err := h.Store.Products(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cacheKey := fmt.Sprintf(redisx.KeyCacheProduct, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, cacheKey).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	p, err := h.Store.ProductWithCategory(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, cacheKey, string(kafkax.MustMarshal(p)), redisx.TTLCache).Err()
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.CreateProduct(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "product", p.ID, events.ActionCreated)
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var patch catalog.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Store.UpdateProduct(ctx, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "product", p.ID, events.ActionUpdated)
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.DeleteProduct(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	h.publishChange(ctx, "product", id, events.ActionDeleted)
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (h *CatalogHandler) publishChange(ctx context.Context, entity string, id int64, action string) {
	if h.Producer == nil {
		return
	}
	eventType := events.EventProductChanged
	if entity == "category" {
		eventType = events.EventCategoryChanged
	}
	payload := events.CatalogChangedPayload{Entity: entity, ID: id, Action: action}
	env := events.NewEnvelope(eventType, h.Service,
		middleware.GetReqID(ctx), fmt.Sprintf("%s:%d", entity, id), kafkax.MustMarshal(payload))
	h.Producer.Publish(events.PartitionKey(env.CorrelationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", raw)
	}
	return id, nil
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	var f catalog.Filter

	if v := q.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, apperr.Validation("invalid category %q", v)
		}
		f.CategoryID = &id
	}
	f.Search = q.Get("search")
	if v := q.Get("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, apperr.Validation("invalid minPrice %q", v)
		}
		f.MinPrice = &d
	}
	if v := q.Get("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, apperr.Validation("invalid maxPrice %q", v)
		}
		f.MaxPrice = &d
	}
	f.FeaturedOnly = q.Get("featured") == "true"
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.Validation("invalid limit %q", v)
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.Validation("invalid offset %q", v)
		}
		f.Offset = n
	}
	return f, nil
}
