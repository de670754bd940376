package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// DOMAIN ERROR CODES
// ===============================

// Stable machine-readable codes carried on ServiceError.Code. Clients
// branch on these, not on messages.
const (
	CodeDuplicateName        = "DUPLICATE_NAME"
	CodeInvalidImage         = "INVALID_IMAGE"
	CodeUnknownBadge         = "UNKNOWN_BADGE"
	CodeUnknownRecipient     = "UNKNOWN_RECIPIENT"
	CodeNoEmail              = "NO_EMAIL"
	CodeNoEmailConfirmation  = "NO_EMAIL_CONFIRMATION"
	CodeBadEvidence          = "BAD_EVIDENCE"
	CodeAssertionNotFound    = "ASSERTION_NOT_FOUND"
	CodeBadgeNotFound        = "BADGE_NOT_FOUND"
	CodeUnsupportedImageType = "UNSUPPORTED_IMAGE_TYPE"
	CodeStorageError         = "STORAGE_ERROR"
)

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewBusinessError creates a business logic error
func NewBusinessError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "BUSINESS_ERROR",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *ServiceError {
	return &ServiceError{
		Type:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// WithCode sets the machine-readable code on the error.
func (e *ServiceError) WithCode(code string) *ServiceError {
	e.Code = code
	return e
}

// WithCause attaches the underlying error without changing the
// client-facing message.
func (e *ServiceError) WithCause(cause error) *ServiceError {
	e.Cause = cause
	return e
}

// ===============================
// DOMAIN ERROR PATTERNS
// ===============================

// ErrDuplicateName reports a badge class name collision.
func ErrDuplicateName(name string) *ServiceError {
	return NewConflictError(
		fmt.Sprintf("a badge named %q already exists", name),
		CodeDuplicateName,
	)
}

// ErrInvalidImage reports a rejected badge image.
func ErrInvalidImage(reason string) *ServiceError {
	return NewValidationError(
		fmt.Sprintf("badge image rejected: %s", reason),
		nil,
	).WithCode(CodeInvalidImage)
}

// ErrUnknownBadge reports an issuance attempt against a badge class
// that does not exist.
func ErrUnknownBadge(badgeID int64) *ServiceError {
	return NewNotFoundError(
		fmt.Sprintf("badge %d does not exist", badgeID),
	).WithCode(CodeUnknownBadge)
}

// ErrUnknownRecipient reports a recipient reference that resolves to
// nobody.
func ErrUnknownRecipient(ref string) *ServiceError {
	return NewNotFoundError(
		fmt.Sprintf("recipient %q does not exist", ref),
	).WithCode(CodeUnknownRecipient)
}

// ErrNoEmail reports a recipient failing the email-on-file requirement.
func ErrNoEmail(displayName string) *ServiceError {
	return NewBusinessError(
		fmt.Sprintf("recipient %q has no email address on file", displayName),
		CodeNoEmail,
	)
}

// ErrNoEmailConfirmation reports a recipient failing the confirmed-email
// requirement.
func ErrNoEmailConfirmation(displayName string) *ServiceError {
	return NewBusinessError(
		fmt.Sprintf("recipient %q has not confirmed their email address", displayName),
		CodeNoEmailConfirmation,
	)
}

// ErrBadEvidence reports an evidence URL that is not an absolute
// http(s) URL.
func ErrBadEvidence(evidence string) *ServiceError {
	return NewValidationError(
		fmt.Sprintf("evidence %q is not an absolute http(s) URL", evidence),
		nil,
	).WithCode(CodeBadEvidence)
}

// ErrAssertionNotFound reports a render request for an assertion that
// does not exist.
func ErrAssertionNotFound(assertionID int64) *ServiceError {
	return NewNotFoundError(
		fmt.Sprintf("assertion %d does not exist", assertionID),
	).WithCode(CodeAssertionNotFound)
}

// ErrAssertionNotHeld reports a render request for a (badge, recipient)
// pair with no assertion between them.
func ErrAssertionNotHeld(badgeID int64, ref string) *ServiceError {
	return NewNotFoundError(
		fmt.Sprintf("recipient %q holds no assertion of badge %d", ref, badgeID),
	).WithCode(CodeAssertionNotFound)
}

// ErrBadgeNotFound reports a render request for a badge class that does
// not exist.
func ErrBadgeNotFound(badgeID int64) *ServiceError {
	return NewNotFoundError(
		fmt.Sprintf("badge %d does not exist", badgeID),
	).WithCode(CodeBadgeNotFound)
}

// ErrUnsupportedImageType reports stored image metadata that should be
// impossible; creation validates the type, so hitting this means the
// row was tampered with or written by something else.
func ErrUnsupportedImageType(imageType string) *ServiceError {
	return NewInternalError(
		fmt.Sprintf("stored badge image has unsupported type %q", imageType),
	).WithCode(CodeUnsupportedImageType)
}

// ErrStorage wraps a storage failure.
func ErrStorage(op string, cause error) *ServiceError {
	return NewInternalError(
		fmt.Sprintf("storage failure during %s", op),
	).WithCode(CodeStorageError).WithCause(cause)
}

// ===============================
// ERROR UTILITIES
// ===============================

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

// GetServiceError extracts a ServiceError from an error, or creates a generic one
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError(err.Error())
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Type == errorType
	}
	return false
}

// IsErrorCode checks if an error carries a specific domain code
func IsErrorCode(err error, code string) bool {
	if serviceErr := GetServiceError(err); serviceErr != nil {
		return serviceErr.Code == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsErrorType(err, "VALIDATION_ERROR")
}

// IsBusinessError checks if an error is a business logic error
func IsBusinessError(err error) bool {
	return IsErrorType(err, "BUSINESS_ERROR")
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return IsErrorType(err, "CONFLICT")
}
