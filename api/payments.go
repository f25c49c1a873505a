package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/payments-backend/api/apicommon"
	"github.com/vocdoni/payments-backend/db"
	"github.com/vocdoni/payments-backend/errors"
	"github.com/vocdoni/payments-backend/payments"
	"go.vocdoni.io/dvote/log"
)

// maxWebhookBodyBytes caps webhook payload reads.
const maxWebhookBodyBytes = int64(65536)

// createIntentHandler creates a payment intent on the processor. The
// operation is idempotent on the client-supplied key: a retry with the same
// key returns the stored response verbatim without a second processor call.
func (a *API) createIntentHandler(w http.ResponseWriter, r *http.Request) {
	request := &apicommon.CreateIntentRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	clientKey := r.Header.Get("Idempotency-Key")
	if clientKey == "" {
		clientKey = request.IdempotencyKey
	}
	response, replayed, err := a.payments.CreateIntent(r.Context(), &payments.IntentRequest{
		ClientKey:   clientKey,
		AmountCents: request.Amount,
		Currency:    request.Currency,
		Metadata:    request.Metadata,
	})
	if err != nil {
		writePaymentsError(w, err)
		return
	}
	if replayed {
		log.Debugf("create intent request replayed for key %s", clientKey)
	}
	apicommon.HTTPWriteRawJSON(w, response)
}

// paymentIntentHandler returns the local mirror of a payment intent.
func (a *API) paymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")
	if intentID == "" {
		errors.ErrMalformedURLParam.Withf("intentID is required").Write(w)
		return
	}
	intent, err := a.payments.PaymentIntent(r.Context(), intentID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, intent)
}

// refundHandler delegates a refund to the processor. It does not interact
// with the ledger.
func (a *API) refundHandler(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")
	if intentID == "" {
		errors.ErrMalformedURLParam.Withf("intentID is required").Write(w)
		return
	}
	refund, err := a.payments.Refund(r.Context(), intentID)
	if err != nil {
		writePaymentsError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, refund)
}

// webhookHandler ingests a processor webhook delivery. Redeliveries of an
// already-processed event are acknowledged with no side effects.
func (a *API) webhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		errors.ErrMalformedBody.Withf("error reading request body: %v", err).Write(w)
		return
	}
	signatureHeader := r.Header.Get("Stripe-Signature")
	if signatureHeader == "" {
		errors.ErrInvalidSignature.With("missing Stripe-Signature header").Write(w)
		return
	}
	ack, err := a.payments.HandleWebhookEvent(r.Context(), payload, signatureHeader)
	if err != nil {
		writePaymentsError(w, err)
		return
	}
	apicommon.HTTPWriteJSON(w, ack)
}

// writePaymentsError maps service errors onto the API error taxonomy.
func writePaymentsError(w http.ResponseWriter, err error) {
	var procErr *payments.ProcessorError
	if stderrors.As(err, &procErr) {
		switch procErr.Code {
		case "webhook_validation":
			errors.ErrInvalidSignature.WithErr(err).Write(w)
		case "invalid_event":
			errors.ErrMalformedBody.WithErr(err).Write(w)
		case "missing_idempotency_key":
			errors.ErrMissingIdempotencyKey.Write(w)
		case "invalid_amount":
			errors.ErrInvalidAmount.Write(w)
		case "idempotency_conflict":
			errors.ErrIdempotencyConflict.Write(w)
		default:
			errors.ErrProcessorFailure.WithErr(err).Write(w)
		}
		return
	}
	writeStorageError(w, err)
}

// writeStorageError maps store errors onto the API error taxonomy.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, db.ErrNotFound):
		errors.ErrPaymentNotFound.Write(w)
	default:
		errors.ErrInternalStorageError.WithErr(err).Write(w)
	}
}
