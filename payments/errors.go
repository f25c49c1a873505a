package payments

import (
	"errors"
	"fmt"
)

// ProcessorError represents a payment-processor-specific error.
type ProcessorError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processor error [%s]: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("processor error [%s]: %s", e.Code, e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// Common processor errors
var (
	ErrWebhookValidation     = &ProcessorError{Code: "webhook_validation", Message: "webhook signature validation failed"}
	ErrInvalidEvent          = &ProcessorError{Code: "invalid_event", Message: "invalid webhook event"}
	ErrMissingIdempotencyKey = &ProcessorError{Code: "missing_idempotency_key", Message: "client idempotency key is required"}
	ErrInvalidAmount         = &ProcessorError{Code: "invalid_amount", Message: "amount must be a positive integer of minor units"}
	ErrKeyConflict           = &ProcessorError{Code: "idempotency_conflict", Message: "idempotency key reused with a different request"}
	ErrAPICallFailed         = &ProcessorError{Code: "api_call_failed", Message: "processor API call failed"}
	ErrInvalidConfiguration  = &ProcessorError{Code: "invalid_configuration", Message: "invalid processor configuration"}
)

// NewProcessorError creates a new ProcessorError with the given code, message, and underlying error
func NewProcessorError(code, message string, err error) *ProcessorError {
	return &ProcessorError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsRetryableError determines if an error is worth retrying by the caller.
// Remote call failures and timeouts are retryable because no local durable
// state is left behind for the failed attempt, validation and conflict
// errors are not.
func IsRetryableError(err error) bool {
	var procErr *ProcessorError
	if errors.As(err, &procErr) {
		switch procErr.Code {
		case "api_call_failed", "rate_limit_error", "temporary_error":
			return true
		default:
			return false
		}
	}
	return false
}
