package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow definition was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates a workflow execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrDeferredActionNotFound indicates a deferred action was not found.
	ErrDeferredActionNotFound = errors.New("deferred action not found")

	// ErrDocumentTemplateNotFound indicates no document template matched.
	ErrDocumentTemplateNotFound = errors.New("document template not found")

	// ErrInvalidID indicates an identifier that cannot be stored safely.
	ErrInvalidID = errors.New("invalid identifier")
)

// RepositoryError wraps repository errors with the operation and entity they concern.
type RepositoryError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Resource string // Kind of entity (e.g., "workflow", "execution")
	ID       string
	Err      error
}

func (e *RepositoryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Resource, e.ID, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for repository errors.
func (e *RepositoryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRepositoryError creates a new repository error with context.
func NewRepositoryError(op, resource, id string, err error) *RepositoryError {
	return &RepositoryError{
		Op:       op,
		Resource: resource,
		ID:       id,
		Err:      err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsDeferredActionNotFound checks if an error indicates a deferred action was not found.
func IsDeferredActionNotFound(err error) bool {
	return errors.Is(err, ErrDeferredActionNotFound)
}

// IsDocumentTemplateNotFound checks if an error indicates a document template was not found.
func IsDocumentTemplateNotFound(err error) bool {
	return errors.Is(err, ErrDocumentTemplateNotFound)
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) ||
		IsExecutionNotFound(err) ||
		IsDeferredActionNotFound(err) ||
		IsDocumentTemplateNotFound(err)
}
