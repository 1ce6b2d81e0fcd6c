// Package domainerr carries the failure kinds shared by the skill domain packages.
package domainerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a domain failure.
type Kind string

const (
	// KindValidation marks a data or state invariant violation.
	KindValidation Kind = "validation"
	// KindOperation marks a failed precondition of an aggregate mutation.
	KindOperation Kind = "operation"
	// KindMigration marks a schema migration that cannot proceed.
	KindMigration Kind = "migration"
)

// Error is the canonical domain error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if op := strings.TrimSpace(e.Op); op != "" {
		return fmt.Sprintf("%s: %s", op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Validationf builds a validation error.
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Operationf builds an operation error for the named mutation.
func Operationf(op, format string, args ...interface{}) error {
	return &Error{Kind: KindOperation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Migration wraps cause as a migration error.
func Migration(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindMigration, Op: op, Message: cause.Error(), Cause: cause}
}

// KindOf extracts the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	return de.Kind
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsOperation reports whether err is a failed mutation precondition.
func IsOperation(err error) bool { return KindOf(err) == KindOperation }

// IsMigration reports whether err is a migration failure.
func IsMigration(err error) bool { return KindOf(err) == KindMigration }

// MessageOf returns the bare message of a domain error without its op prefix.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
