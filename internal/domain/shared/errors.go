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
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")

	// Stock ledger errors
	ErrInsufficientStock       = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrAlreadyPosted           = NewDomainError("ALREADY_POSTED", "Document has already been posted to stock")
	ErrAlreadyReversed         = NewDomainError("ALREADY_REVERSED", "Document posting has already been reversed")
	ErrInvalidQuantity         = NewDomainError("INVALID_QUANTITY", "Quantity must be a positive value")
	ErrItemConfirmed           = NewDomainError("ITEM_CONFIRMED", "Stock take item is confirmed and can no longer be modified")
	ErrInvalidStatusTransition = NewDomainError("INVALID_STATUS_TRANSITION", "Status transition is not allowed")
)
