package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	// ErrCatValidation: malformed or out-of-range invocation. Rejected
	// before any tool runs; no side effects.
	ErrCatValidation ErrorCategory = "validation"
	// ErrCatToolExecution: the generation tool itself failed. Halts the
	// current step; earlier steps' mutations stand.
	ErrCatToolExecution ErrorCategory = "tool_execution"
	// ErrCatCompilation: generated code fails to compile. Isolated per
	// scene, recovered locally via placeholder; never crosses scenes.
	ErrCatCompilation ErrorCategory = "compilation"
	// ErrCatAmbiguity: no confident tool decision. Returned to the user
	// as a clarification question; no mutation occurs.
	ErrCatAmbiguity ErrorCategory = "ambiguity"

	ErrCatNotFound ErrorCategory = "not_found"
	ErrCatState    ErrorCategory = "state"
	ErrCatTimeout  ErrorCategory = "timeout"
	ErrCatInternal ErrorCategory = "internal"
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrToolExecution creates a tool execution error.
func ErrToolExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatToolExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrCompilation creates a compilation error for a scene.
func ErrCompilation(sceneID SceneID, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatCompilation,
		Code:      "SCENE_COMPILE_FAILED",
		Message:   message,
		Retryable: false,
		Details: map[string]interface{}{
			"scene_id": string(sceneID),
		},
	}
}

// ErrAmbiguity creates an orchestration ambiguity error carrying the
// clarification question to surface to the user.
func ErrAmbiguity(question string) *DomainError {
	return &DomainError{
		Category:  ErrCatAmbiguity,
		Code:      "CLARIFICATION_REQUIRED",
		Message:   question,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// ClarificationQuestion extracts the question from an ambiguity error.
func ClarificationQuestion(err error) (string, bool) {
	var domErr *DomainError
	if errors.As(err, &domErr) && domErr.Category == ErrCatAmbiguity {
		return domErr.Message, true
	}
	return "", false
}

// Predefined error codes.
const (
	CodeUnknownTool        = "UNKNOWN_TOOL"
	CodeUnknownTargetScene = "UNKNOWN_TARGET_SCENE"
	CodeUnsupported        = "UNSUPPORTED_REQUEST"
	CodeToolFailed         = "TOOL_FAILED"
	CodeEmptyToolOutput    = "EMPTY_TOOL_OUTPUT"
	CodeDecisionParse      = "DECISION_PARSE_FAILED"
	CodeProjectBusy        = "PROJECT_BUSY"
	CodeSceneCompile       = "SCENE_COMPILE_FAILED"
)

// ErrUnsupported signals that no tool confidently fits the request and no
// clarification could be formed. It is explicit; a tool is never guessed.
func ErrUnsupported(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeUnsupported,
		Message:   message,
		Retryable: false,
	}
}
