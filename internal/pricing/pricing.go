package pricing

import "github.com/shopspring/decimal"

// Rates holds the storefront pricing constants. Shipping is free strictly
// above FreeShippingOver (100.00 qualifies for flat-rate, 100.01 ships free).
type Rates struct {
	TaxRate          decimal.Decimal // e.g. 0.08
	FlatShipping     decimal.Decimal // e.g. 9.99
	FreeShippingOver decimal.Decimal // e.g. 100.00
}

func DefaultRates() Rates {
	return Rates{
		TaxRate:          decimal.NewFromFloat(0.08),
		FlatShipping:     decimal.NewFromFloat(9.99),
		FreeShippingOver: decimal.NewFromInt(100),
	}
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Subtotal sums unit price x quantity over the lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// QuoteSubtotal derives shipping, tax and total from a subtotal. This is the
// single shared implementation; cart view, checkout view and order creation
// must all go through it so the displayed and charged totals cannot diverge.
func (r Rates) QuoteSubtotal(subtotal decimal.Decimal) Quote {
	shipping := r.FlatShipping
	if subtotal.GreaterThan(r.FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(r.TaxRate).Round(2)
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

func (r Rates) QuoteLines(lines []Line) Quote {
	return r.QuoteSubtotal(Subtotal(lines))
}
