// Package fault defines the error taxonomy shared by the session core.
package fault

import (
	"context"
	"errors"
	"fmt"

	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"gorm.io/gorm"
)

// Kind classifies a failure for callers that must branch on it.
type Kind string

const (
	NotAuthenticated   Kind = "not_authenticated"
	InvalidCredentials Kind = "invalid_credentials"
	AlreadyExists      Kind = "already_exists"
	PermissionDenied   Kind = "permission_denied"
	Timeout            Kind = "timeout"
	NotFound           Kind = "not_found"
	Unknown            Kind = "unknown"
)

// Error carries a classified failure plus optional remediation guidance.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
	Remedy  string `json:"remedy,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a classified error with a caller-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), cause: err}
}

// From classifies an arbitrary error into the taxonomy. Already classified
// errors pass through unchanged.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	return Wrap(KindOf(err), err)
}

// KindOf maps sentinel and driver errors onto the taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, identitydomain.ErrNotAuthenticated):
		return NotAuthenticated
	case errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidSession),
		errors.Is(err, identitydomain.ErrSessionExpired),
		errors.Is(err, identitydomain.ErrSessionRevoked):
		return InvalidCredentials
	case errors.Is(err, identitydomain.ErrAlreadyRegistered),
		errors.Is(err, profiledomain.ErrProfileExists),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return AlreadyExists
	case errors.Is(err, profiledomain.ErrPermissionDenied):
		return PermissionDenied
	case errors.Is(err, profiledomain.ErrListTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, identitydomain.ErrIdentityNotFound),
		errors.Is(err, identitydomain.ErrSessionNotFound),
		errors.Is(err, profiledomain.ErrProfileNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound
	default:
		return Unknown
	}
}

// Is reports whether err classifies to kind.
func Is(err error, kind Kind) bool {
	fe := From(err)
	return fe != nil && fe.Kind == kind
}
