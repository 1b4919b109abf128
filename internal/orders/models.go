package orders

import (
	"time"

	"github.com/elitestore/go-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Address is the checkout form shape, stored as JSONB on the order.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	CheckoutKey     string          `json:"-"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  Address         `json:"billingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Item snapshots a cart line at order time. UnitPrice is the product
// price at purchase and never changes afterwards.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type ItemWithProduct struct {
	Item
	Product catalog.Product `json:"product"`
}

type OrderWithItems struct {
	Order
	Items []ItemWithProduct `json:"orderItems"`
}
