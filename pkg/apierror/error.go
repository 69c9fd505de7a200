package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes returned in the "code" field of an error body.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeValidation          = "VALIDATION_ERROR"
	CodeItemNotFound        = "ITEM_NOT_FOUND"
	CodeDuplicateItem       = "DUPLICATE_ITEM"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeSaleInProgress      = "SALE_IN_PROGRESS"
	CodeIdempotencyMismatch = "IDEMPOTENCY_KEY_REUSED"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON renders the error inside the failure envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Success: false, Error: e})
	return data
}

// BadRequest is a malformed request the client should not retry unchanged.
func BadRequest(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

// ValidationError is a well-formed request with field values out of range.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Code: CodeValidation, Message: message, Details: details}
}

// ItemNotFound reports that no inventory row has the id.
func ItemNotFound(id string) *Error {
	return &Error{StatusCode: http.StatusNotFound, Code: CodeItemNotFound, Message: fmt.Sprintf("item %q not found", id)}
}

// DuplicateItem reports that Add hit an existing id.
func DuplicateItem(id string) *Error {
	return &Error{StatusCode: http.StatusConflict, Code: CodeDuplicateItem, Message: fmt.Sprintf("item id %q already exists", id)}
}

// InsufficientStock reports a sale larger than the quantity on hand.
func InsufficientStock(id string) *Error {
	return &Error{StatusCode: http.StatusConflict, Code: CodeInsufficientStock, Message: fmt.Sprintf("insufficient stock for item %q", id)}
}

// SaleInProgress reports a repeated idempotency key whose first sale has
// not finished yet.
func SaleInProgress() *Error {
	return &Error{StatusCode: http.StatusConflict, Code: CodeSaleInProgress, Message: "a sale with this idempotency key is still in progress"}
}

// IdempotencyMismatch reports a key reused for a different item or quantity.
func IdempotencyMismatch() *Error {
	return &Error{StatusCode: http.StatusUnprocessableEntity, Code: CodeIdempotencyMismatch, Message: "idempotency key was already used for a different sale"}
}

// StorageUnavailable reports that the database could not serve the request.
func StorageUnavailable() *Error {
	return &Error{StatusCode: http.StatusServiceUnavailable, Code: CodeStorageUnavailable, Message: "inventory storage is unavailable"}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{StatusCode: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}
