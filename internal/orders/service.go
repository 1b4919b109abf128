package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/cart"
	"github.com/elitestore/go-storefront/internal/events"
	"github.com/elitestore/go-storefront/internal/identity"
	kafkax "github.com/elitestore/go-storefront/internal/kafka"
	"github.com/elitestore/go-storefront/internal/payment"
	"github.com/elitestore/go-storefront/internal/pricing"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Store is the order persistence the service drives. *Repo satisfies it;
// tests use an in-memory fake.
type Store interface {
	Create(ctx context.Context, o Order, items []Item) (Order, error)
	ByCheckoutKey(ctx context.Context, userID, key string) (Order, error)
	Get(ctx context.Context, id string) (OrderWithItems, error)
	List(ctx context.Context, userID string) ([]OrderWithItems, error)
	UpdateStatus(ctx context.Context, id string, to Status) (Order, error)
	MarkPaid(ctx context.Context, id, paymentIntentID string) (Order, error)
}

type CartReader interface {
	Items(ctx context.Context, userID string) ([]cart.ItemWithProduct, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// IdemCache is the fast-path lookup for checkout retries. The unique
// checkout_key column stays the source of truth; a stale or missing
// cache entry just falls through to the database.
type IdemCache interface {
	OrderID(ctx context.Context, userID, key string) (string, bool)
	Remember(ctx context.Context, userID, key, orderID string)
}

// Service owns checkout and payment confirmation. Totals are always
// computed server-side from the cart through the shared pricing rates;
// nothing monetary is trusted from the client.
type Service struct {
	Store       Store
	Cart        CartReader
	Processor   payment.Processor
	Rates       pricing.Rates
	Idem        IdemCache
	Created     Publisher
	Paid        Publisher
	ServiceName string
}

type CheckoutInput struct {
	ShippingAddress Address `json:"shippingAddress"`
	BillingAddress  Address `json:"billingAddress"`
	IdempotencyKey  string  `json:"-"`
}

type CheckoutResult struct {
	Order        Order         `json:"order"`
	Quote        pricing.Quote `json:"quote"`
	ClientSecret string        `json:"clientSecret"`
	Existing     bool          `json:"existing"`
}

func validateAddress(name string, a Address) error {
	for field, v := range map[string]string{
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"email":     a.Email,
		"address":   a.Address,
		"city":      a.City,
		"zipCode":   a.ZipCode,
	} {
		if strings.TrimSpace(v) == "" {
			return apperr.Validation("%s.%s is required", name, field)
		}
	}
	return nil
}

// Checkout snapshots the current cart into a pending order and asks the
// processor for a payment intent covering the order total. The intent id
// is not stored yet; it only lands on the order once the payment is
// confirmed against the processor.
func (s *Service) Checkout(ctx context.Context, p identity.Principal, in CheckoutInput) (CheckoutResult, error) {
	if err := validateAddress("shippingAddress", in.ShippingAddress); err != nil {
		return CheckoutResult{}, err
	}
	if err := validateAddress("billingAddress", in.BillingAddress); err != nil {
		return CheckoutResult{}, err
	}

	// a retried checkout with the same key returns the order the first
	// attempt created instead of opening a duplicate
	if in.IdempotencyKey != "" {
		if s.Idem != nil {
			if id, ok := s.Idem.OrderID(ctx, p.UserID, in.IdempotencyKey); ok {
				if ow, err := s.Store.Get(ctx, id); err == nil && ow.UserID == p.UserID && ow.Status == StatusPending {
					return s.resumeCheckout(ctx, ow)
				}
			}
		}
		existing, err := s.Store.ByCheckoutKey(ctx, p.UserID, in.IdempotencyKey)
		if err == nil {
			return s.resumeByID(ctx, existing.ID)
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return CheckoutResult{}, err
		}
	}

	items, err := s.Cart.Items(ctx, p.UserID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(items) == 0 {
		return CheckoutResult{}, apperr.Validation("cart is empty")
	}

	lines := make([]pricing.Line, 0, len(items))
	snapshots := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Product.IsActive {
			return CheckoutResult{}, apperr.Validation("product %q is no longer available", it.Product.Name)
		}
		if it.Product.Stock < it.Quantity {
			return CheckoutResult{}, apperr.Validation("product %q has only %d in stock", it.Product.Name, it.Product.Stock)
		}
		lines = append(lines, pricing.Line{UnitPrice: it.Product.Price, Quantity: it.Quantity})
		snapshots = append(snapshots, Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.Price,
		})
	}
	quote := s.Rates.QuoteLines(lines)

	order := Order{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		CheckoutKey:     in.IdempotencyKey,
		TotalAmount:     quote.Total,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
	}

	created, err := s.Store.Create(ctx, order, snapshots)
	if errors.Is(err, ErrDuplicateCheckout) {
		// lost the race against a concurrent retry with the same key
		existing, lookupErr := s.Store.ByCheckoutKey(ctx, p.UserID, in.IdempotencyKey)
		if lookupErr != nil {
			return CheckoutResult{}, lookupErr
		}
		return s.resumeByID(ctx, existing.ID)
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	if in.IdempotencyKey != "" && s.Idem != nil {
		s.Idem.Remember(ctx, p.UserID, in.IdempotencyKey, created.ID)
	}

	intent, err := s.Processor.CreateIntent(ctx, quote.Total)
	if err != nil {
		return CheckoutResult{}, err
	}

	s.publish(ctx, s.Created, events.EventOrderCreated, created.ID, events.OrderCreatedPayload{
		OrderID:     created.ID,
		UserID:      created.UserID,
		TotalAmount: created.TotalAmount.String(),
	})

	return CheckoutResult{Order: created, Quote: quote, ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) resumeByID(ctx context.Context, orderID string) (CheckoutResult, error) {
	ow, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, err
	}
	return s.resumeCheckout(ctx, ow)
}

func (s *Service) resumeCheckout(ctx context.Context, ow OrderWithItems) (CheckoutResult, error) {
	if ow.Status != StatusPending {
		return CheckoutResult{}, apperr.Validation("order %s is already %s", ow.ID, ow.Status)
	}
	intent, err := s.Processor.CreateIntent(ctx, ow.TotalAmount)
	if err != nil {
		return CheckoutResult{}, err
	}
	// the breakdown is recomputed from the snapshotted lines, not the
	// live cart, so it always matches the persisted order
	lines := make([]pricing.Line, 0, len(ow.Items))
	for _, it := range ow.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	return CheckoutResult{
		Order:        ow.Order,
		Quote:        s.Rates.QuoteLines(lines),
		ClientSecret: intent.ClientSecret,
		Existing:     true,
	}, nil
}

// ConfirmPayment verifies the intent with the processor and, only on
// success, finalizes the order. Any other outcome leaves the order and
// the cart untouched.
func (s *Service) ConfirmPayment(ctx context.Context, p identity.Principal, orderID, paymentIntentID string) (Order, error) {
	if orderID == "" || paymentIntentID == "" {
		return Order{}, apperr.Validation("orderId and paymentIntentId are required")
	}

	ow, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ow.UserID != p.UserID && !p.IsAdmin() {
		return Order{}, apperr.NotFound("order")
	}

	// a repeated confirmation of the same intent is a no-op success
	if ow.Status == StatusPaid && ow.PaymentIntentID == paymentIntentID {
		return ow.Order, nil
	}
	if ow.Status != StatusPending {
		return Order{}, apperr.Validation("order is already %s", ow.Status)
	}

	intent, err := s.Processor.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return Order{}, err
	}
	if intent.Status != payment.StatusSucceeded {
		return Order{}, apperr.PaymentFailed("payment not completed (processor status %q)", intent.Status)
	}
	if intent.AmountCents != payment.Cents(ow.TotalAmount) {
		return Order{}, apperr.PaymentFailed("payment amount does not match order total")
	}

	paid, err := s.Store.MarkPaid(ctx, orderID, paymentIntentID)
	if err != nil {
		return Order{}, err
	}

	s.publish(ctx, s.Paid, events.EventOrderPaid, paid.ID, events.OrderPaidPayload{
		OrderID:         paid.ID,
		UserID:          paid.UserID,
		PaymentIntentID: paymentIntentID,
		TotalAmount:     paid.TotalAmount.String(),
	})

	logrus.WithFields(logrus.Fields{"order_id": paid.ID, "user_id": paid.UserID}).Info("order paid")
	return paid, nil
}

// Orders lists the caller's orders; admins see every order.
func (s *Service) Orders(ctx context.Context, p identity.Principal) ([]OrderWithItems, error) {
	if p.IsAdmin() {
		return s.Store.List(ctx, "")
	}
	return s.Store.List(ctx, p.UserID)
}

func (s *Service) Order(ctx context.Context, p identity.Principal, id string) (OrderWithItems, error) {
	ow, err := s.Store.Get(ctx, id)
	if err != nil {
		return OrderWithItems{}, err
	}
	if ow.UserID != p.UserID && !p.IsAdmin() {
		return OrderWithItems{}, apperr.NotFound("order")
	}
	return ow, nil
}

// UpdateStatus is the admin back-office transition; route gating already
// requires the admin role, this re-checks in depth.
func (s *Service) UpdateStatus(ctx context.Context, p identity.Principal, id string, to Status) (Order, error) {
	if !p.IsAdmin() {
		return Order{}, apperr.Forbidden("admin role required")
	}
	return s.Store.UpdateStatus(ctx, id, to)
}

func (s *Service) publish(ctx context.Context, pub Publisher, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	env := events.NewEnvelope(eventType, s.ServiceName, middleware.GetReqID(ctx), correlationID, kafkax.MustMarshal(payload))
	pub.Publish(events.PartitionKey(correlationID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
