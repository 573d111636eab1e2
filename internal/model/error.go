package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeInvalidLineItem        = "INVALID_LINE_ITEM"
	ErrCodeInvalidQuantity        = "INVALID_QUANTITY"
	ErrCodeOutOfStock             = "OUT_OF_STOCK"
	ErrCodeMissingAddress         = "MISSING_ADDRESS"
	ErrCodeMissingPaymentMethod   = "MISSING_PAYMENT_METHOD"
	ErrCodeInvalidPaymentMethod   = "INVALID_PAYMENT_METHOD"
	ErrCodeEmptyCart              = "EMPTY_CART"
	ErrCodeAlreadyPaid            = "ALREADY_PAID"
	ErrCodeNotPaid                = "NOT_PAID"
	ErrCodeAlreadyDelivered       = "ALREADY_DELIVERED"
	ErrCodeInvalidNavigation      = "INVALID_NAVIGATION"
	ErrCodeNoSession              = "NO_SESSION"
	ErrCodeCheckoutCompleted      = "CHECKOUT_COMPLETED"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodePersistenceUnavailable = "PERSISTENCE_UNAVAILABLE"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// DomainError is a business-rule violation surfaced to the caller for
// user-facing messaging.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidLineItem        = NewDomainError(ErrCodeInvalidLineItem, "Line item has a negative price or a quantity below one")
	ErrInvalidQuantity        = NewDomainError(ErrCodeInvalidQuantity, "Quantity must not be negative")
	ErrOutOfStock             = NewDomainError(ErrCodeOutOfStock, "Requested quantity exceeds the available stock")
	ErrMissingAddress         = NewDomainError(ErrCodeMissingAddress, "A shipping address with full name and address is required")
	ErrMissingPaymentMethod   = NewDomainError(ErrCodeMissingPaymentMethod, "A payment method must be selected before placing the order")
	ErrInvalidPaymentMethod   = NewDomainError(ErrCodeInvalidPaymentMethod, "Payment method is not one of the supported options")
	ErrEmptyCart              = NewDomainError(ErrCodeEmptyCart, "The cart is empty, nothing to place")
	ErrAlreadyPaid            = NewDomainError(ErrCodeAlreadyPaid, "The order has already been marked as paid")
	ErrNotPaid                = NewDomainError(ErrCodeNotPaid, "The order has not been paid yet")
	ErrAlreadyDelivered       = NewDomainError(ErrCodeAlreadyDelivered, "The order has already been marked as delivered")
	ErrNoSession              = NewDomainError(ErrCodeNoSession, "An authenticated identity is required for this step")
	ErrCheckoutCompleted      = NewDomainError(ErrCodeCheckoutCompleted, "This checkout has already placed its order")
	ErrProductNotFound        = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound          = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrPersistenceUnavailable = NewDomainError(ErrCodePersistenceUnavailable, "Durable storage is unavailable, the operation can be retried")
)
