package apicommon

// CreateIntentRequest is the request to create a payment intent. The
// idempotency key is taken from the Idempotency-Key header, the body field
// is a fallback for clients that cannot set headers.
type CreateIntentRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
}
