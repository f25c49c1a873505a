// Package errors provides custom error types and definitions for the application.
//
//nolint:lll
package errors

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the client's fault,
// and they return HTTP Status 400, 401, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the
// current last 4XXX or 5XXX. If you notice there's a gap, DON'T fill it in, that
// code was used in the past for some error (not anymore) and shouldn't be reused.
var (
	// Validation errors (400)
	ErrMalformedBody         = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid JSON request body")}
	ErrMalformedURLParam     = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid URL parameter")}
	ErrMissingIdempotencyKey = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("idempotency key is required")}
	ErrInvalidAmount         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("amount must be a positive integer of minor units")}
	ErrInvalidCurrency       = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid currency code")}

	// Authenticity errors (401)
	ErrInvalidSignature = Error{Code: 40101, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("webhook signature verification failed")}

	// Not found errors (404)
	ErrPaymentNotFound = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("payment intent not found")}
	ErrAccountNotFound = Error{Code: 40402, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("ledger account not found")}

	// Conflict errors (409)
	ErrIdempotencyConflict = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("idempotency key reused with a different request")}

	// Server errors (500)
	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: failed to process response")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: operation failed")}
	ErrProcessorFailure           = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: payment processor request failed")}
	ErrInternalStorageError       = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("server error: storage operation failed")}
)
