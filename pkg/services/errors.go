// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/stageflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid workflow status")
	ErrInvalidGraph     = errors.New("invalid workflow graph")

	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("active workflow must have at least one stage")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrUnknownWorkflow      = errors.New("referenced workflow does not exist")
	ErrUnknownFunctionality = errors.New("referenced functionality does not exist")
	ErrUnknownTransition    = errors.New("referenced transition does not exist")
	ErrApprovalNotRequired  = errors.New("transition does not require approval")
	ErrApproverRequired     = errors.New("approver is required")

	// Business Logic Conflicts (409 Conflict).
	ErrApprovalClosed    = errors.New("approval was already decided")
	ErrApprovalRequested = errors.New("approval already requested for transition")
	ErrMappingExists     = errors.New("functionality already mapped to workflow")

	// Not found errors (404), shared with the persistence layer.
	ErrWorkflowNotFound      = persistence.ErrWorkflowNotFound
	ErrActivityNotFound      = persistence.ErrActivityNotFound
	ErrMappingNotFound       = persistence.ErrMappingNotFound
	ErrFunctionalityNotFound = persistence.ErrFunctionalityNotFound
	ErrApprovalNotFound      = persistence.ErrApprovalNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrUnknownWorkflow) ||
		errors.Is(err, ErrUnknownFunctionality) ||
		errors.Is(err, ErrUnknownTransition) ||
		errors.Is(err, ErrApprovalNotRequired) ||
		errors.Is(err, ErrApproverRequired)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrApprovalClosed) ||
		errors.Is(err, ErrApprovalRequested) ||
		errors.Is(err, ErrMappingExists)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
