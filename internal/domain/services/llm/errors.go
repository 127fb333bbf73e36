package llm

import (
	"errors"
	"fmt"

	"jainn/internal/domain/models/chat"
)

// BackendError is the only error type providers return. It pins a
// transport failure to one of the closed chat.ErrorKind categories and
// keeps the cause for logs.
type BackendError struct {
	Kind  chat.ErrorKind
	Model chat.ModelIdentity
	Cause error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s backend %s: %v", e.Model, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s backend %s", e.Model, e.Kind)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError wraps cause with a normalized kind.
func NewBackendError(kind chat.ErrorKind, model chat.ModelIdentity, cause error) *BackendError {
	return &BackendError{Kind: kind, Model: model, Cause: cause}
}

// KindOf extracts the normalized kind from a provider error. Anything
// that is not a *BackendError counts as Unknown, which keeps the adapter
// boundary honest: untyped errors never leak a transport category.
func KindOf(err error) chat.ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return chat.ErrUnknown
}
