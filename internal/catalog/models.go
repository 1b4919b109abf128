package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	ImageURL      string           `json:"imageUrl"`
	Stock         int              `json:"stock"`
	CategoryID    *int64           `json:"categoryId,omitempty"`
	IsFeatured    bool             `json:"isFeatured"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type ProductWithCategory struct {
	Product
	Category *Category `json:"category"`
}

// Page is a product listing slice plus the total match count ignoring
// limit/offset, for page-count display.
type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
