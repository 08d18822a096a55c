// Package provider holds the wire clients for the external systems the
// orchestrator talks to: the card network that executes peer-to-peer
// transfers, and the payment gateway that settles deposits. Both are
// consumed as black-box HTTP contracts; neither client retries on its own.
package provider

import "context"

// TransferResult is the card network's answer to a transfer request.
type TransferResult struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}

// CardNetwork executes card-to-card transfers. Implementations must issue
// the call at most once per invocation; the idempotency key exists so that
// caller-side retries cannot double-execute a transfer.
type CardNetwork interface {
	CreateTransfer(ctx context.Context, fromCard, toCard string, amountCents int64, idempotencyKey string) (*TransferResult, error)
}

// PaymentIntent is the gateway's handle for an asynchronous card payment.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CheckoutSession is a hosted payment page created by the gateway.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Gateway creates and inspects payments on the external payment provider.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	CreateCheckoutSession(ctx context.Context, amountCents int64, successURL, cancelURL string, metadata map[string]string) (*CheckoutSession, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}
