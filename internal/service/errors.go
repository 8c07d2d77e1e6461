package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a board, column or card does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when a name matches more than one board or column.
var ErrAmbiguous = errors.New("ambiguous")

// ErrMutationRejected matches every RejectedError via errors.Is.
var ErrMutationRejected = errors.New("mutation rejected")

// ErrUnsupported is returned by backends that lack an operation.
var ErrUnsupported = errors.New("not supported by backend")

// ErrUnauthorized is returned when the backend rejects the stored credentials.
var ErrUnauthorized = errors.New("not authorized")

// RejectedError is a failed confirmation of a mutation by the backing service.
type RejectedError struct {
	Op  string
	Err error
}

func (e *RejectedError) Error() string {
	if e.Err == nil {
		return e.Op + ": rejected"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }

func (e *RejectedError) Is(target error) bool { return target == ErrMutationRejected }

// Reject wraps err as a RejectedError for op. A nil err stays nil.
func Reject(op string, err error) error {
	if err == nil {
		return nil
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return err
	}
	return &RejectedError{Op: op, Err: err}
}

// ValidationError is a locally invalid form. It blocks submission; no request is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// ValidateCommentText rejects empty comments.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ValidationError{Field: "text", Message: "is required"}
	}
	return nil
}
