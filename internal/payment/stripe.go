package payment

import (
	"context"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
)

type StripeProcessor struct {
	api *stripeclient.API
}

func NewStripe(secretKey string) *StripeProcessor {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api}
}

func (s *StripeProcessor) CreateIntent(ctx context.Context, amount decimal.Decimal) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(Cents(amount)),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, apperr.Unavailable("payment processor", err)
	}
	return fromStripe(pi), nil
}

func (s *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	pi, err := s.api.PaymentIntents.Get(id, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return Intent{}, apperr.Unavailable("payment processor", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
	}
}
