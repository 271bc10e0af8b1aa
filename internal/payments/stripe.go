// Package payments integrates with Stripe for deposit collection and refunds.
package payments

import (
	"context"
	"fmt"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
)

// StripeProcessor implements domain.PaymentProcessor over the Stripe API.
// stripe-go calls do not take a context; callers still pass one so the
// implementation can be swapped for a fake in tests.
type StripeProcessor struct {
	currency string
	logger   *zerolog.Logger
}

// NewStripeProcessor sets the global Stripe API key and returns a processor
// charging in the given currency (lowercase ISO code, e.g. "usd").
func NewStripeProcessor(secretKey, currency string, logger *zerolog.Logger) *StripeProcessor {
	stripe.Key = secretKey
	return &StripeProcessor{currency: currency, logger: logger}
}

// CreatePaymentIntent opens an intent for the given amount in minor units.
func (p *StripeProcessor) CreatePaymentIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	if currency == "" {
		currency = p.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	p.logger.Debug().
		Str("payment_intent_id", intent.ID).
		Int64("amount", amount).
		Msg("payment intent created")

	return &models.PaymentIntent{
		ID:             intent.ID,
		ClientSecret:   intent.ClientSecret,
		Status:         string(intent.Status),
		AmountReceived: intent.AmountReceived,
	}, nil
}

// GetPaymentIntent fetches the current state of an intent.
func (p *StripeProcessor) GetPaymentIntent(_ context.Context, id string) (*models.PaymentIntent, error) {
	intent, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}

	return &models.PaymentIntent{
		ID:             intent.ID,
		ClientSecret:   intent.ClientSecret,
		Status:         string(intent.Status),
		AmountReceived: intent.AmountReceived,
	}, nil
}

// CreateRefund refunds the given amount against a payment intent.
func (p *StripeProcessor) CreateRefund(_ context.Context, paymentIntentID string, amount int64) (*models.Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amount),
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund for %s: %w", paymentIntentID, err)
	}

	p.logger.Info().
		Str("payment_intent_id", paymentIntentID).
		Str("refund_id", r.ID).
		Int64("amount", amount).
		Msg("refund created")

	return &models.Refund{ID: r.ID, Status: string(r.Status)}, nil
}
