package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
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
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists      = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput       = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrOutOfStock         = NewDomainError("OUT_OF_STOCK", "Product is out of stock")
	ErrInsufficientStock  = NewDomainError("INSUFFICIENT_STOCK", "Not enough stock available")
	ErrEmptyCart          = NewDomainError("EMPTY_CART", "Cart is empty")
	ErrInvalidTotal       = NewDomainError("INVALID_TOTAL", "Invalid transaction total")
	ErrAlreadyProcessing  = NewDomainError("ALREADY_PROCESSING", "A payment is already being processed for this cart")
	ErrInsufficientPoints = NewDomainError("INSUFFICIENT_POINTS", "Insufficient loyalty points")
)

// NewStorageError wraps a persistent-store failure with a displayable message
func NewStorageError(message string) *DomainError {
	return &DomainError{Code: "STORAGE_ERROR", Message: message}
}

// NewDispatchError describes a subscriber handler failure during event dispatch
func NewDispatchError(message string) *DomainError {
	return &DomainError{Code: "DISPATCH_ERROR", Message: message}
}
