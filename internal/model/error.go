package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Notices []Notice `json:"notices,omitempty"`
}

// Standard error codes shared by the stores and the API.
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeInvalidCoupon     = "INVALID_COUPON"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidPincode    = "INVALID_PINCODE"
	ErrCodeInvalidPhone      = "INVALID_PHONE"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeUnauthenticated   = "UNAUTHENTICATED"
	ErrCodeInvalidCode       = "INVALID_CODE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRequestCancelled  = "REQUEST_CANCELLED"
)

// DomainError is a recoverable business rule violation. It never leaves a
// store half-mutated.
type DomainError struct {
	Code    string
	Message string
	// Kind groups refined codes under the coarse taxonomy
	// (e.g. INVALID_PINCODE is a VALIDATION_FAILED).
	Kind string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is the same sentinel or the coarse kind this
// error belongs to.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Kind == "" && (t.Code == e.Code || t.Code == e.Kind)
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

func newRefinedError(kind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Coarse kinds.
var (
	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "Not enough stock for this item")
	ErrInvalidCoupon     = NewDomainError(ErrCodeInvalidCoupon, "This coupon code is not valid")
	ErrValidationFailed  = NewDomainError(ErrCodeValidationFailed, "Validation failed")
	ErrNotFound          = NewDomainError(ErrCodeNotFound, "Not found")
	ErrUnauthenticated   = NewDomainError(ErrCodeUnauthenticated, "Sign in required")
	ErrInvalidCode       = NewDomainError(ErrCodeInvalidCode, "Verification code is not valid")
	ErrRateLimited       = NewDomainError(ErrCodeRateLimited, "Please wait before requesting another code")
)

// Refinements.
var (
	ErrMissingField    = newRefinedError(ErrCodeValidationFailed, ErrCodeMissingField, "Please fill in all delivery details")
	ErrInvalidPincode  = newRefinedError(ErrCodeValidationFailed, ErrCodeInvalidPincode, "Pincode must be exactly 6 digits")
	ErrInvalidPhone    = newRefinedError(ErrCodeValidationFailed, ErrCodeInvalidPhone, "Phone number must have at least 10 digits")
	ErrInvalidQuantity = newRefinedError(ErrCodeValidationFailed, ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrEmptyCart       = newRefinedError(ErrCodeValidationFailed, ErrCodeEmptyCart, "Cart is empty")
	ErrProductNotFound = newRefinedError(ErrCodeNotFound, ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound   = newRefinedError(ErrCodeNotFound, ErrCodeOrderNotFound, "Order not found")
)

// AsDomainError unwraps err into a DomainError when it is one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
