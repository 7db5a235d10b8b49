// Package billing wraps stripe-go PaymentIntent flows for transport fees:
// hold on accept, capture on arrival, release if the driver drops off.
package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

type StripeClient struct {
	// AmountCents is the flat transport fee held per accepted request.
	AmountCents int64
	Currency    string
}

// NewStripeClient sets the package-level stripe key and returns a client
// with a flat fee. Callers gate construction on the key being present.
func NewStripeClient(apiKey string, amountCents int64, currency string) *StripeClient {
	stripe.Key = apiKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeClient{AmountCents: amountCents, Currency: currency}
}

// Hold creates a manual-capture PaymentIntent referencing the request and
// returns its id.
func (s *StripeClient) Hold(ctx context.Context, requestID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(s.AmountCents),
		Currency:      stripe.String(s.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AddMetadata("request_id", requestID)
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, holdID string) error {
	_, err := paymentintent.Capture(holdID, nil)
	return err
}

// Release cancels the hold without charging.
func (s *StripeClient) Release(ctx context.Context, holdID string) error {
	_, err := paymentintent.Cancel(holdID, nil)
	return err
}
