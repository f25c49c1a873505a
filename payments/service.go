// Package payments records processor payment events into the internal
// double-entry ledger with exactly-once semantics: the idempotent request
// cache makes client-initiated intent creation safe to retry, and the
// webhook ingestion pipeline deduplicates provider-delivered events before
// posting them as ledger transactions.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/vocdoni/payments-backend/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.vocdoni.io/dvote/log"
)

// OpCreateIntent scopes idempotency records to the create-intent operation.
const OpCreateIntent = "create_intent"

// The escrow side of every payment posting is a single well-known account,
// provisioned lazily on first posting.
const (
	escrowAccountID   = "platform_escrow"
	escrowAccountName = "Platform Escrow"
)

// AccountResolver maps a succeeded payment to the counterparty ledger
// account to debit. Customer-identity mapping is deployment-specific, so the
// resolver is pluggable; the default derives a stable account ID from the
// processor's customer reference, falling back to the payment reference.
type AccountResolver func(payment *PaymentSucceeded) (id, name string)

func defaultAccountResolver(payment *PaymentSucceeded) (string, string) {
	ref := payment.CustomerRef
	if ref == "" {
		ref = payment.PaymentRef
	}
	return "cust_" + ref, "Customer " + ref
}

// IntentRequest is a client request to create a payment intent.
type IntentRequest struct {
	ClientKey   string            `json:"-"`
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IntentResponse is the response returned for a created (or replayed)
// payment intent. Retried clients receive these fields byte-identical, the
// client secret included, so they can resume the payment flow.
type IntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
}

// RefundResponse is the response returned for a processor refund.
type RefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Ack acknowledges a webhook delivery. Deduped is true when the event had
// already produced its effects and this delivery was a no-op.
type Ack struct {
	Received bool `json:"received"`
	Deduped  bool `json:"deduped"`
}

// Service provides the main business logic for payment operations. It is
// stateless across requests, every coordination point lives in the store.
type Service struct {
	client          Processor
	db              *db.MongoStorage
	lockManager     *LockManager
	config          *Config
	resolverAccount AccountResolver
}

// NewService creates a new payments service.
func NewService(config *Config, database *db.MongoStorage, client Processor) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if client == nil {
		return nil, fmt.Errorf("processor client is required")
	}
	return &Service{
		client:          client,
		db:              database,
		lockManager:     NewLockManager(),
		config:          config,
		resolverAccount: defaultAccountResolver,
	}, nil
}

// SetAccountResolver replaces the default counterparty account resolver.
func (s *Service) SetAccountResolver(resolver AccountResolver) {
	if resolver != nil {
		s.resolverAccount = resolver
	}
}

// CreateIntent creates a payment intent on the remote processor, making the
// operation safe to retry with the same client key. The returned bytes are
// the exact JSON response, byte-identical across retries. The replayed flag
// is true when the response was served from the idempotency cache without a
// remote call.
func (s *Service) CreateIntent(ctx context.Context, req *IntentRequest) (response []byte, replayed bool, err error) {
	if req == nil || req.ClientKey == "" {
		return nil, false, ErrMissingIdempotencyKey
	}
	if req.AmountCents <= 0 {
		return nil, false, ErrInvalidAmount
	}
	// serve a cached response verbatim, guaranteeing retries never create
	// duplicate remote payment intents
	cached, err := s.db.IdempotencyResponse(ctx, req.ClientKey, OpCreateIntent)
	if err == nil {
		log.Debugf("payments: create intent replayed for key %s", req.ClientKey)
		return cached, true, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	// cache miss: create the intent on the processor, passing the client key
	// through as the processor's own idempotency token. If the local commit
	// below is lost, the retried remote call returns this same resource.
	remote, err := s.client.CreatePaymentIntent(ctx, req)
	if err != nil {
		return nil, false, err
	}
	intentResponse := &IntentResponse{
		ID:           remote.ID,
		ClientSecret: remote.ClientSecret,
		Status:       string(remote.Status),
	}
	response, err = json.Marshal(intentResponse)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal intent response: %w", err)
	}
	mirror := &db.PaymentIntent{
		ProviderID:   remote.ID,
		Provider:     ProviderStripe,
		Amount:       remote.Amount,
		Currency:     string(remote.Currency),
		Status:       string(remote.Status),
		ClientSecret: remote.ClientSecret,
	}
	if remote.Customer != nil {
		mirror.CustomerRef = remote.Customer.ID
	}
	// persist the mirror and the cached response as one atomic unit, so a
	// crash cannot leave a cached response referencing an intent that was
	// never durably recorded
	err = s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.db.SetPaymentIntent(sessCtx, mirror); err != nil {
			return err
		}
		return s.db.StoreIdempotencyResponse(sessCtx, req.ClientKey, OpCreateIntent, response)
	})
	switch {
	case err == nil:
		log.Infow("payment intent created", "id", remote.ID, "amount", remote.Amount, "currency", mirror.Currency)
		return response, false, nil
	case errors.Is(err, db.ErrAlreadyExists):
		// a concurrent request with the same key committed first with the
		// same response bytes, return the winner's record as a replay
		stored, lookupErr := s.db.IdempotencyResponse(ctx, req.ClientKey, OpCreateIntent)
		if lookupErr != nil {
			return nil, false, fmt.Errorf("idempotency read-back failed: %w", lookupErr)
		}
		return stored, true, nil
	case errors.Is(err, db.ErrConflict):
		return nil, false, ErrKeyConflict
	default:
		return nil, false, fmt.Errorf("failed to persist payment intent %s: %w", remote.ID, err)
	}
}

// PaymentIntent returns the local mirror of the payment intent with the
// given processor-assigned ID.
func (s *Service) PaymentIntent(ctx context.Context, providerID string) (*db.PaymentIntent, error) {
	return s.db.PaymentIntent(ctx, providerID)
}

// Refund asks the processor to refund the given payment intent. Refunds
// delegate entirely to the processor and never touch the ledger.
func (s *Service) Refund(ctx context.Context, providerID string) (*RefundResponse, error) {
	refund, err := s.client.CreateRefund(ctx, providerID)
	if err != nil {
		return nil, err
	}
	log.Infow("refund created", "id", refund.ID, "paymentIntent", providerID, "status", string(refund.Status))
	return &RefundResponse{
		ID:     refund.ID,
		Status: string(refund.Status),
	}, nil
}

// HandleWebhookEvent verifies, deduplicates and applies a webhook delivery.
// Deliveries of an already-processed event ID acknowledge with Deduped set
// and produce no side effects. A failure after verification leaves nothing
// recorded, so the sender's redelivery retries the whole sequence.
func (s *Service) HandleWebhookEvent(ctx context.Context, payload []byte, signatureHeader string) (*Ack, error) {
	event, err := s.client.ValidateWebhookEvent(payload, signatureHeader)
	if err != nil {
		return nil, err
	}
	webhookEvent, err := classifyEvent(event)
	if err != nil {
		return nil, err
	}

	// serialize concurrent deliveries of the same event in-process; across
	// replicas the unique event ID constraint decides at commit time
	unlock := s.lockManager.Lock(webhookEvent.ID)
	defer unlock()

	processed, err := s.db.EventProcessed(ctx, webhookEvent.ID)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if processed {
		log.Debugf("payments webhook: event %s already processed, skipping", webhookEvent.ID)
		return &Ack{Received: true, Deduped: true}, nil
	}

	// the dedup record and the ledger effects it guards commit or abort
	// together: either the event is recorded as processed and its
	// transaction posted, or neither happens
	fingerprint := payloadFingerprint(payload)
	err = s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.db.MarkEventProcessed(sessCtx, webhookEvent.ID, webhookEvent.Type, fingerprint); err != nil {
			return err
		}
		return s.applyEvent(sessCtx, webhookEvent)
	})
	if err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// lost the race against a concurrent delivery of the same event
			log.Debugf("payments webhook: event %s processed concurrently, skipping", webhookEvent.ID)
			return &Ack{Received: true, Deduped: true}, nil
		}
		return nil, fmt.Errorf("failed to process event %s: %w", webhookEvent.ID, err)
	}
	return &Ack{Received: true}, nil
}

// applyEvent applies the ledger effects of a first-seen event within the
// caller's transaction.
func (s *Service) applyEvent(sessCtx mongo.SessionContext, event *WebhookEvent) error {
	switch event.Kind {
	case EventKindPaymentSucceeded:
		return s.applyPaymentSucceeded(sessCtx, event.Payment)
	default:
		log.Debugf("payments webhook: acknowledged unhandled event type %s (id %s)", event.Type, event.ID)
		return nil
	}
}

// applyPaymentSucceeded upserts the intent mirror to its terminal success
// state and posts the double-entry transaction, debiting the counterparty
// and crediting the platform escrow account for the reported amount.
func (s *Service) applyPaymentSucceeded(sessCtx mongo.SessionContext, payment *PaymentSucceeded) error {
	mirror := &db.PaymentIntent{
		ProviderID:  payment.PaymentRef,
		Provider:    ProviderStripe,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Status:      string(stripeapi.PaymentIntentStatusSucceeded),
		CustomerRef: payment.CustomerRef,
	}
	if err := s.db.SetPaymentIntent(sessCtx, mirror); err != nil {
		return fmt.Errorf("failed to update intent mirror %s: %w", payment.PaymentRef, err)
	}
	counterpartyID, counterpartyName := s.resolverAccount(payment)
	if _, err := s.db.EnsureAccount(sessCtx, counterpartyID, counterpartyName, db.AccountTypeCustomer); err != nil {
		return fmt.Errorf("failed to provision counterparty account %s: %w", counterpartyID, err)
	}
	if _, err := s.db.EnsureAccount(sessCtx, escrowAccountID, escrowAccountName, db.AccountTypePlatformEscrow); err != nil {
		return fmt.Errorf("failed to provision escrow account: %w", err)
	}
	transaction, err := s.db.PostTransaction(
		sessCtx, counterpartyID, escrowAccountID, payment.Amount, payment.Currency, payment.PaymentRef)
	if err != nil {
		return fmt.Errorf("failed to post ledger transaction for %s: %w", payment.PaymentRef, err)
	}
	log.Infow("ledger transaction posted",
		"id", transaction.ID, "debit", counterpartyID, "credit", escrowAccountID,
		"amount", payment.Amount, "currency", payment.Currency, "externalRef", payment.PaymentRef)
	return nil
}
