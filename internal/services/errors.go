package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/adaptive-testing-service/internal/errors"
	"github.com/SAP-F-2025/adaptive-testing-service/internal/pool"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Pool specific errors
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolNotEditable  = errors.New("pool cannot be edited in current status")
	ErrPoolNotPublished = errors.New("pool is not published")
	ErrPoolEmpty        = errors.New("pool has no items")
	ErrItemNotFound     = errors.New("item not found")

	// Session specific errors
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidStateTransition = errors.New("invalid session state transition")
	ErrNoEligibleItems        = errors.New("no eligible items remain for this session")
	ErrItemNotPending         = errors.New("item was not the one handed out for this session")
	ErrItemAlreadyAnswered    = errors.New("item already has a recorded response")

	// Report specific errors
	ErrReportNotFound     = errors.New("report not found")
	ErrSessionNotComplete = errors.New("report requires a completed session")
)

// ErrInvalidItemParameters re-exports the pool authoring error so callers can
// match it at the service boundary.
var ErrInvalidItemParameters = pool.ErrInvalidItemParameters

// Use shared validation errors from errors package.
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPoolNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsValidation checks if error represents a validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidItemParameters) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict the caller can act
// on (wrong lifecycle state, already-answered item).
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrPoolNotEditable) ||
		errors.Is(err, ErrItemAlreadyAnswered) ||
		errors.Is(err, ErrSessionNotComplete)
}

// IsNoEligibleItems checks for the expected end-of-pool condition; callers
// should complete the session in response.
func IsNoEligibleItems(err error) bool {
	return errors.Is(err, ErrNoEligibleItems)
}
