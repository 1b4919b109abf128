package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/cart"
	"github.com/elitestore/go-storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
)

type CartStore interface {
	Add(ctx context.Context, userID string, productID int64, quantity int) (cart.Item, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) (cart.Item, error)
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context, userID string) error
	Items(ctx context.Context, userID string) ([]cart.ItemWithProduct, error)
	Owner(ctx context.Context, id int64) (string, error)
}

type CartHandler struct {
	Store CartStore
	Rates pricing.Rates
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.list)
	r.Post("/cart", h.add)
	r.Put("/cart/{id}", h.update)
	r.Delete("/cart/{id}", h.remove)
	r.Delete("/cart", h.clear)
}

type cartView struct {
	Items []cart.ItemWithProduct `json:"items"`
	Quote pricing.Quote          `json:"quote"`
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Store.Items(ctx, p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity})
	}
	writeJSON(w, http.StatusOK, cartView{Items: items, Quote: h.Rates.QuoteLines(lines)})
}

type addToCartReq struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.Store.Add(ctx, p.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type updateCartReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.requireOwner(ctx, id, p.UserID); err != nil {
		writeError(w, err)
		return
	}

	// the store layer only sets positive quantities; zero or less means
	// the shopper removed the line
	if req.Quantity <= 0 {
		if err := h.Store.Remove(ctx, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	item, err := h.Store.UpdateQuantity(ctx, id, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.requireOwner(ctx, id, p.UserID); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.Remove(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.Clear(ctx, p.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireOwner hides other users' cart rows behind a 404.
func (h *CartHandler) requireOwner(ctx context.Context, id int64, userID string) error {
	owner, err := h.Store.Owner(ctx, id)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperr.NotFound("cart item")
	}
	return nil
}
