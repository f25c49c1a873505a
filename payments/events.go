package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	stripeapi "github.com/stripe/stripe-go/v82"
)

// EventKind is the closed set of webhook event variants this system acts on.
// Everything outside the set maps to EventKindIgnored, which is acknowledged
// to the sender with no ledger effect, keeping forward compatibility with
// event types the processor adds later.
type EventKind int

const (
	EventKindIgnored EventKind = iota
	EventKindPaymentSucceeded
)

// WebhookEvent is a verified, classified webhook event.
type WebhookEvent struct {
	ID      string
	Type    string
	Kind    EventKind
	Payment *PaymentSucceeded // set when Kind is EventKindPaymentSucceeded
}

// PaymentSucceeded carries the provider-side facts of a succeeded payment:
// the processor payment reference posted as the ledger external reference,
// the reported amount in minor units and the customer reference used to
// resolve the counterparty account.
type PaymentSucceeded struct {
	PaymentRef  string
	Amount      int64
	Currency    string
	CustomerRef string
}

// classifyEvent maps a verified Stripe event onto the closed variant set.
func classifyEvent(event *stripeapi.Event) (*WebhookEvent, error) {
	webhookEvent := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: EventKindIgnored,
	}
	if event.ID == "" {
		return nil, NewProcessorError("invalid_event", "event is missing an identifier", nil)
	}
	switch event.Type {
	case stripeapi.EventTypePaymentIntentSucceeded:
		payment, err := parsePaymentFromEvent(event)
		if err != nil {
			return nil, err
		}
		webhookEvent.Kind = EventKindPaymentSucceeded
		webhookEvent.Payment = payment
	default:
		// acknowledged and ignored
	}
	return webhookEvent, nil
}

// parsePaymentFromEvent extracts payment information from a webhook event
func parsePaymentFromEvent(event *stripeapi.Event) (*PaymentSucceeded, error) {
	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, NewProcessorError("invalid_event", "failed to parse payment intent from event", err)
	}
	if intent.ID == "" {
		return nil, NewProcessorError("invalid_event", "payment intent missing identifier", nil)
	}
	if intent.Amount <= 0 {
		return nil, NewProcessorError("invalid_event", "payment intent reports a non-positive amount", nil)
	}
	payment := &PaymentSucceeded{
		PaymentRef: intent.ID,
		Amount:     intent.Amount,
		Currency:   string(intent.Currency),
	}
	if intent.Customer != nil {
		payment.CustomerRef = intent.Customer.ID
	}
	return payment, nil
}

// payloadFingerprint digests the raw payload for audit and detection of
// processor anomalies. It plays no part in dedup correctness.
func payloadFingerprint(payload []byte) string {
	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}
