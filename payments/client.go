package payments

import (
	"context"

	stripeapi "github.com/stripe/stripe-go/v82"
	stripepaymentintent "github.com/stripe/stripe-go/v82/paymentintent"
	striperefund "github.com/stripe/stripe-go/v82/refund"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

// Processor is the remote payment processor consumed as a set of opaque
// operations. It is an injected, stateless capability: tests provide a fake,
// production wires the Stripe-backed Client.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, req *IntentRequest) (*stripeapi.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, providerID string) (*stripeapi.PaymentIntent, error)
	CreateRefund(ctx context.Context, providerID string) (*stripeapi.Refund, error)
	ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error)
}

// Client wraps the Stripe API client with additional functionality
type Client struct {
	config *Config
}

// NewClient creates a new Stripe client with the given configuration
func NewClient(config *Config) *Client {
	stripeapi.Key = config.APIKey
	return &Client{config: config}
}

// ValidateWebhookEvent verifies the webhook signature against the raw
// payload using the shared webhook secret and parses the verified event.
func (c *Client) ValidateWebhookEvent(payload []byte, signatureHeader string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEvent(payload, signatureHeader, c.config.WebhookSecret)
	if err != nil {
		return nil, NewProcessorError("webhook_validation", "webhook signature validation failed", err)
	}
	return &event, nil
}

// CreatePaymentIntent creates a payment intent on the processor. The client
// idempotency key is passed through as the processor's own idempotency
// token, so a retried create after a lost local commit returns the same
// remote resource instead of creating a second one.
func (*Client) CreatePaymentIntent(ctx context.Context, req *IntentRequest) (*stripeapi.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Params: stripeapi.Params{
			Context: ctx,
		},
		Amount:   stripeapi.Int64(req.AmountCents),
		Currency: stripeapi.String(req.Currency),
	}
	params.SetIdempotencyKey(req.ClientKey)
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	intent, err := stripepaymentintent.New(params)
	if err != nil {
		return nil, NewProcessorError("api_call_failed", "failed to create payment intent", err)
	}
	return intent, nil
}

// GetPaymentIntent retrieves a payment intent from the processor by ID.
func (*Client) GetPaymentIntent(ctx context.Context, providerID string) (*stripeapi.PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Params: stripeapi.Params{
			Context: ctx,
		},
	}
	intent, err := stripepaymentintent.Get(providerID, params)
	if err != nil {
		return nil, NewProcessorError("api_call_failed", "failed to get payment intent", err)
	}
	return intent, nil
}

// CreateRefund asks the processor to refund the given payment intent. The
// refund never interacts with the ledger, reversal postings are out of scope.
func (*Client) CreateRefund(ctx context.Context, providerID string) (*stripeapi.Refund, error) {
	params := &stripeapi.RefundParams{
		Params: stripeapi.Params{
			Context: ctx,
		},
		PaymentIntent: stripeapi.String(providerID),
	}
	refund, err := striperefund.New(params)
	if err != nil {
		return nil, NewProcessorError("api_call_failed", "failed to create refund", err)
	}
	return refund, nil
}
