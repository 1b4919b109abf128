package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/identity"
	"github.com/elitestore/go-storefront/internal/orders"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrderService interface {
	Checkout(ctx context.Context, p identity.Principal, in orders.CheckoutInput) (orders.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, p identity.Principal, orderID, paymentIntentID string) (orders.Order, error)
	Orders(ctx context.Context, p identity.Principal) ([]orders.OrderWithItems, error)
	Order(ctx context.Context, p identity.Principal, id string) (orders.OrderWithItems, error)
	UpdateStatus(ctx context.Context, p identity.Principal, id string, to orders.Status) (orders.Order, error)
}

type OrdersHandler struct {
	Service OrderService
	Redis   *redis.Client
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.status)
	r.Post("/orders", h.checkout)
	r.Post("/confirm-payment", h.confirmPayment)
}

func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Service.Orders(ctx, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ow, err := h.Service.Order(ctx, p, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, ow.Order)
	writeJSON(w, http.StatusOK, ow)
}

// status serves the post-checkout polling loop from the Redis status
// cache when it can; a miss falls back to the order row and backfills
// the cache.
func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	ow, err := h.Service.Order(ctx, p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, ow.Order)
	writeJSON(w, http.StatusOK, statusView{Status: ow.Status, PaymentStatus: ow.PaymentStatus})
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	var in orders.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Service.Checkout(ctx, p, in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, res.Order)

	code := http.StatusCreated
	if res.Existing {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

type confirmPaymentReq struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (h *OrdersHandler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	var req confirmPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Service.ConfirmPayment(ctx, p, req.OrderID, req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.UpdateStatus(ctx, p, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

type statusView struct {
	Status        orders.Status        `json:"status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	body, _ := json.Marshal(statusView{Status: o.Status, PaymentStatus: o.PaymentStatus})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
