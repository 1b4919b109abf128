package cart

import (
	"time"

	"github.com/elitestore/go-storefront/internal/catalog"
)

type Item struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemWithProduct is a cart row joined with its product, the shape every
// cart view renders from.
type ItemWithProduct struct {
	Item
	Product catalog.Product `json:"product"`
}
