package model

import "errors"

// Error codes for classified failures. Provider failures all surface to the
// cashier through the exchange file's status field; the code only controls
// the message and the log line.
const (
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
	ErrCodeMissingExchange = "MISSING_EXCHANGE_FILE"
	ErrCodeAuthentication  = "AUTHENTICATION_FAILED"
	ErrCodeInvalidCode     = "INVALID_CODE"
	ErrCodeTimeout         = "PROVIDER_TIMEOUT"
	ErrCodeProvider        = "PROVIDER_ERROR"
	ErrCodeStore           = "STORE_ERROR"
)

// DomainError is a classified business error carrying the message shown on
// the POS screen.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrMissingExchangeFile = NewDomainError(ErrCodeMissingExchange, "Exchange file does not exist")
	ErrProviderTimeout     = NewDomainError(ErrCodeTimeout, "The coupon provider did not respond in time")
)

// ClassifyCode returns the classification code of err, or ErrCodeProvider
// when err carries no classification of its own.
func ClassifyCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeProvider
}
