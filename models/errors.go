package models

import "errors"

// Sentinel errors for business-rule and lookup failures.
// The handler layer maps these to HTTP status codes.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPortfolioNotFound    = errors.New("portfolio not found")
	ErrShareNotFound        = errors.New("share not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPriceNotFound        = errors.New("share price not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrOrderNotCancellable  = errors.New("order cannot be cancelled")
)

// ValidationError reports malformed or illegal input, caught before any write.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
