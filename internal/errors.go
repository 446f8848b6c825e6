package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeExpired      ErrorType = "EXPIRED"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidPeriod    ErrorCode = "INVALID_PERIOD"
	ErrCodeInvalidCategory  ErrorCode = "INVALID_CATEGORY"
	ErrCodeInvalidWorkplace ErrorCode = "INVALID_WORKPLACE"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"

	ErrCodeExpenseNotFound    ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeCategoryNotFound   ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeWorkplaceNotFound  ErrorCode = "WORKPLACE_NOT_FOUND"
	ErrCodeMemberNotFound     ErrorCode = "MEMBER_NOT_FOUND"
	ErrCodeLimitNotFound      ErrorCode = "LIMIT_NOT_FOUND"
	ErrCodeInvitationNotFound ErrorCode = "INVITATION_NOT_FOUND"

	ErrCodeExpenseAlreadyDecided ErrorCode = "EXPENSE_ALREADY_DECIDED"
	ErrCodeInvitationUsed        ErrorCode = "INVITATION_ALREADY_USED"
	ErrCodeInvitationExpired     ErrorCode = "INVITATION_EXPIRED"
	ErrCodeInvitationCancelled   ErrorCode = "INVITATION_CANCELLED"

	ErrCodeLimitOverlap      ErrorCode = "LIMIT_PERIOD_OVERLAP"
	ErrCodeDuplicateMember   ErrorCode = "DUPLICATE_MEMBER"
	ErrCodePendingInvitation ErrorCode = "PENDING_INVITATION_EXISTS"

	ErrCodeUnauthorizedAccess ErrorCode = "UNAUTHORIZED_ACCESS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
)

// AppError is the typed outcome every service returns on failure. The HTTP
// facade maps it to a response with ToHTTPResponse; services never write
// status codes themselves.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInvalidStateError reports an operation that is not legal from the
// entity's current state, e.g. deciding a non-pending expense.
func NewInvalidStateError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewExpiredError is distinct from invalid-state: it is time-based and the
// caller may have already observed the lazy transition side effect.
func NewExpiredError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExpired,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrExpenseNotFound       = NewNotFoundError("expense not found", ErrCodeExpenseNotFound)
	ErrCategoryNotFound      = NewNotFoundError("category not found", ErrCodeCategoryNotFound)
	ErrWorkplaceNotFound     = NewNotFoundError("workplace not found", ErrCodeWorkplaceNotFound)
	ErrMemberNotFound        = NewNotFoundError("workplace member not found", ErrCodeMemberNotFound)
	ErrLimitNotFound         = NewNotFoundError("workplace limit not found", ErrCodeLimitNotFound)
	ErrInvitationNotFound    = NewNotFoundError("invitation not found", ErrCodeInvitationNotFound)
	ErrExpenseAlreadyDecided = NewInvalidStateError("expense has already been decided", ErrCodeExpenseAlreadyDecided)
	ErrInvitationUsed        = NewInvalidStateError("invitation has already been used", ErrCodeInvitationUsed)
	ErrInvitationExpired     = NewExpiredError("invitation has expired", ErrCodeInvitationExpired)
	ErrInvitationCancelled   = NewInvalidStateError("invitation has been cancelled", ErrCodeInvitationCancelled)
	ErrLimitOverlap          = NewConflictError("a limit with an overlapping period already exists for this workplace and category", ErrCodeLimitOverlap)
	ErrDuplicateMember       = NewConflictError("user is already a member of this workplace", ErrCodeDuplicateMember)
	ErrPendingInvitation     = NewConflictError("a pending invitation already exists for this email", ErrCodePendingInvitation)
	ErrUnauthorizedAccess    = NewForbiddenError("access denied", ErrCodeUnauthorizedAccess)
	ErrInvalidToken          = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
