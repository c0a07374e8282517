package errors

import (
	"fmt"
	"strings"
	"time"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainStructuralError indicates a structural rule violation: a cycle,
	// a self-parent, a self-similarity or a duplicate pair. The mutation is
	// rejected before anything is applied.
	DomainStructuralError DomainErrorType = "STRUCTURAL_VIOLATION"

	// DomainReferenceError indicates a reference to a category that does not
	// exist in the supplied snapshot. The caller supplied inconsistent data;
	// the whole operation fails fast.
	DomainReferenceError DomainErrorType = "REFERENCE_VIOLATION"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"

	// DomainRateLimitError indicates rate limit exceeded
	DomainRateLimitError DomainErrorType = "RATE_LIMIT_ERROR"

	// DomainTimeoutError indicates operation timeout
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Retryable:  false,
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// clone copies the error so the pre-defined catalog entries below stay
// immutable when callers attach request-scoped context.
func (e *DomainError) clone() *DomainError {
	details := make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	clone := e.clone()
	clone.Cause = cause
	return clone
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	clone := e.clone()
	clone.Details[key] = value
	return clone
}

// WithDetails adds multiple details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	clone := e.clone()
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	clone := e.clone()
	clone.Retryable = retryable
	return clone
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// domainErrorTypeToStatusCode maps error types to HTTP status codes
func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400 // Bad Request
	case DomainStructuralError:
		return 422 // Unprocessable Entity
	case DomainReferenceError:
		return 404 // Not Found
	case DomainNotFoundError:
		return 404 // Not Found
	case DomainConflictError:
		return 409 // Conflict
	case DomainRateLimitError:
		return 429 // Too Many Requests
	case DomainTimeoutError:
		return 504 // Gateway Timeout
	case DomainInfrastructureError:
		return 500 // Internal Server Error
	default:
		return 500 // Internal Server Error
	}
}

// Common domain errors - these are pre-defined errors that can be reused

var (
	// Category errors
	ErrCategoryNotFound = NewDomainError(
		DomainNotFoundError,
		"CATEGORY_NOT_FOUND",
		"The requested category does not exist",
	)

	ErrCategoryNameRequired = NewDomainError(
		DomainValidationError,
		"CATEGORY_NAME_REQUIRED",
		"Category name is required",
	)

	ErrCategoryNameTooLong = NewDomainError(
		DomainValidationError,
		"CATEGORY_NAME_TOO_LONG",
		"Category name exceeds maximum length",
	).WithDetail("max_length", 120)

	// Hierarchy errors
	ErrSelfParent = NewDomainError(
		DomainStructuralError,
		"SELF_PARENT",
		"A category cannot be its own parent",
	)

	ErrHierarchyCycle = NewDomainError(
		DomainStructuralError,
		"CATEGORY_CYCLE",
		"Assigning this parent would create a cycle in the hierarchy",
	)

	ErrMoveUnderDescendant = NewDomainError(
		DomainStructuralError,
		"MOVE_UNDER_DESCENDANT",
		"A category cannot be moved under one of its own descendants",
	)

	ErrHierarchyDepthExceeded = NewDomainError(
		DomainReferenceError,
		"HIERARCHY_DEPTH_EXCEEDED",
		"Ancestor walk exceeded the maximum hierarchy depth; the parent chain is corrupted",
	)

	// Similarity errors
	ErrSelfSimilarity = NewDomainError(
		DomainStructuralError,
		"SELF_SIMILARITY",
		"A category cannot be similar to itself",
	)

	ErrDuplicateSimilarity = NewDomainError(
		DomainConflictError,
		"DUPLICATE_SIMILARITY",
		"A similarity between these categories already exists",
	)

	ErrSimilarityNotFound = NewDomainError(
		DomainNotFoundError,
		"SIMILARITY_NOT_FOUND",
		"No similarity exists between these categories",
	)

	// Snapshot errors
	ErrUnknownCategory = NewDomainError(
		DomainReferenceError,
		"UNKNOWN_CATEGORY",
		"An edge or parent pointer references a category that is not in the snapshot",
	)

	ErrSnapshotInconsistent = NewDomainError(
		DomainReferenceError,
		"SNAPSHOT_INCONSISTENT",
		"The supplied snapshot is internally inconsistent",
	)

	// Transaction errors
	ErrConcurrentModification = NewDomainError(
		DomainConflictError,
		"CONCURRENT_MODIFICATION",
		"The category was modified by another process",
	).WithRetryable(true)

	ErrLockNotAcquired = NewDomainError(
		DomainConflictError,
		"LOCK_NOT_ACQUIRED",
		"Another hierarchy mutation is in progress",
	).WithRetryable(true)

	// Rate limiting errors
	ErrRateLimitExceeded = NewDomainError(
		DomainRateLimitError,
		"RATE_LIMIT_EXCEEDED",
		"Too many requests, please try again later",
	).WithRetryable(true)

	// Infrastructure errors
	ErrDatabaseConnection = NewDomainError(
		DomainInfrastructureError,
		"DATABASE_CONNECTION_ERROR",
		"Failed to connect to database",
	).WithRetryable(true)

	ErrEventPublishFailed = NewDomainError(
		DomainInfrastructureError,
		"EVENT_PUBLISH_FAILED",
		"Failed to publish domain event",
	).WithRetryable(true)
)

// ValidationErrors aggregates multiple validation errors. The bulk similarity
// endpoint uses it to report per-item outcomes without failing the batch.
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}

		if _, exists := result[field]; !exists {
			result[field] = make([]string, 0)
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}

// DomainErrorResponse represents the API error response format for domain errors
type DomainErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      DomainErrorType        `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewDomainErrorResponse creates an error response from a domain error
func NewDomainErrorResponse(err *DomainError, requestID string) *DomainErrorResponse {
	return &DomainErrorResponse{
		Error:     true,
		Type:      err.Type,
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		RequestID: requestID,
		Timestamp: fmt.Sprintf("%d", timeNow().Unix()),
	}
}

// Helper function for testing (can be mocked)
var timeNow = func() time.Time {
	return time.Now()
}
