package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks malformed or missing configuration fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnresolvedReference marks ids that do not name a component or resource.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrPrecondition marks backend-specific requirements that are not met.
	ErrPrecondition = errors.New("backend precondition not met")

	// ErrOutputTarget marks output paths of the wrong shape or location.
	ErrOutputTarget = errors.New("invalid output target")
)

// ValidationError describes one problem found in a topology.
type ValidationError struct {
	Kind    error  // one of the Err* sentinels
	Field   string // e.g. "resources.db.image"
	Line    int    // 1-based line in the source document, 0 when unknown
	Message string
}

// NewValidationError creates a ValidationError without line information.
func NewValidationError(kind error, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Field != "" {
		sb.WriteString(e.Field)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&sb, " (line %d)", e.Line)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// ValidationErrors accumulates every independent problem of a document.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	}
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d problems: %s", len(v), strings.Join(msgs, "; "))
}

// Unwrap exposes every member to errors.Is and errors.As.
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Err returns nil for an empty list and the list itself otherwise.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidationErrors extracts the problem list from err. A single
// ValidationError is returned as a one-element list.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var list ValidationErrors
	if errors.As(err, &list) {
		return list, true
	}
	var single *ValidationError
	if errors.As(err, &single) {
		return ValidationErrors{single}, true
	}
	return nil, false
}
