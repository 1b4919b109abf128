package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

const StatusSucceeded = "succeeded"

// Intent is the opaque handle the processor issues for a charge attempt.
// Only its id is ever persisted; card data never reaches this codebase.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
}

// Processor is the hosted payment collaborator. The concrete client is
// Stripe; tests substitute a fake.
type Processor interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
}

// Cents converts a decimal dollar amount to the integer cents the
// processor bills in.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
