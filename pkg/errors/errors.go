package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goerrors.New(msg)
}

// ContextError annotates an error with the operation that produced it.
// Messages read bottom-up: "push changes: authorization failed".
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return fmt.Sprintf("%s: %s", err.Context, err.Err)
}

// Unwrap returns the wrapped error so that sentinel comparisons see
// through the context annotation.
func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps err with a description of the operation that failed.
func WithContext(err error, context string) error {
	return ContextError{Context: context, Err: err}
}

// RootCause returns the innermost error in a chain of ContextErrors.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(ContextError)
		if !ok {
			return err
		}
		err = ctxErr.Err
	}
}

// FriendlyError is an error whose message is meant to be shown to the user
// verbatim, without the "ERROR" prefix or context chain.
type FriendlyError struct {
	Message string
}

func (err FriendlyError) Error() string {
	return err.Message
}

// FriendlyMessage implements the friendlier interface.
func (err FriendlyError) FriendlyMessage() string {
	return err.Message
}

// NewFriendlyError creates an error that will be printed to the user as-is.
func NewFriendlyError(format string, args ...interface{}) error {
	return FriendlyError{Message: fmt.Sprintf(format, args...)}
}

type friendlier interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the message that should be shown to the user
// for the given error. Friendly errors anywhere in the context chain take
// priority over the raw chain message.
func GetPrintableMessage(err error) string {
	curr := err
	for {
		if friendly, ok := curr.(friendlier); ok {
			return friendly.FriendlyMessage()
		}

		ctxErr, ok := curr.(ContextError)
		if !ok {
			break
		}
		curr = ctxErr.Err
	}
	return err.Error()
}
