package retention

import "fmt"

// ValidationError represents a rejected policy write: empty or
// syntactically invalid pattern, or an out-of-bounds retention duration.
// Validation failures are surfaced synchronously to the caller and never
// produce an execution log entry.
type ValidationError struct {
	// Field is the name of the invalid field
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// DuplicatePatternError is returned when a create or update would leave
// two policies with the identical pattern string. It is a validation
// failure: the offending write is rejected with no mutation.
type DuplicatePatternError struct {
	Pattern string
}

// Error implements the error interface.
func (e *DuplicatePatternError) Error() string {
	return fmt.Sprintf("a policy with pattern %q already exists", e.Pattern)
}

// NotFoundError is returned when no policy exists for the given id.
type NotFoundError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy %q not found", e.PolicyID)
}

// DisabledPolicyError is returned when direct execution is requested for
// a policy with enabled=false. Disabled policies are excluded from
// scheduled and bulk execution and reject direct execution outright.
type DisabledPolicyError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *DisabledPolicyError) Error() string {
	return fmt.Sprintf("policy %q is disabled", e.PolicyID)
}

// ExecutionInProgressError is returned when a policy is already being
// executed, either by the scheduler or by another manual trigger. The
// engine never runs two executions against the same policy id at once.
type ExecutionInProgressError struct {
	PolicyID string
}

// Error implements the error interface.
func (e *ExecutionInProgressError) Error() string {
	return fmt.Sprintf("policy %q is already executing", e.PolicyID)
}
