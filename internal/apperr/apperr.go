// Package apperr defines the small error taxonomy surfaced to the UI layer.
//
// Low-level failures (storage transport, identity provider) are classified
// once, at the inventory/session boundary, into an *Error carrying a Kind and
// a short human-readable message. The original error is kept for logging via
// Unwrap but is never meant to be shown to users.
package apperr

import (
	"errors"

	"github.com/mmynk/homestock/internal/storage"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidFamilyContext means an item operation had no usable family binding.
	// It is raised before anything is sent to storage.
	InvalidFamilyContext Kind = "invalid_family_context"
	// StorageUnavailable means the document store could not be reached or refused access.
	StorageUnavailable Kind = "storage_unavailable"
	// FamilyNotFound means a join was attempted against a nonexistent family.
	FamilyNotFound Kind = "family_not_found"
	// IdentityResolutionFailed means the identity provider rejected or returned no usable identity.
	IdentityResolutionFailed Kind = "identity_resolution_failed"
	// SetupRequired is a control signal: the identity is known but no domain user exists yet.
	SetupRequired Kind = "setup_required"
	// InvalidInput means caller-supplied fields failed validation.
	InvalidInput Kind = "invalid_input"
	// LoginFailed means a direct username login did not resolve to a usable user.
	LoginFailed Kind = "login_failed"
	// ItemNotFound means an item id does not exist in the family.
	ItemNotFound Kind = "item_not_found"
)

// Reason refines StorageUnavailable so the UI can show an actionable message.
type Reason string

const (
	ReasonUnknown    Reason = ""
	ReasonPermission Reason = "permission"
	ReasonNetwork    Reason = "network"
)

const (
	msgPermission = "You do not have permission to access this family's items."
	msgNetwork    = "Network error. Please check your connection and try again."
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error that keeps err for diagnostics.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStorage classifies a storage failure. Permission and network failures get
// their own messages; anything else uses fallback.
func FromStorage(err error, fallback string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, storage.ErrPermissionDenied):
		return &Error{Kind: StorageUnavailable, Reason: ReasonPermission, Message: msgPermission, Err: err}
	case errors.Is(err, storage.ErrUnavailable):
		return &Error{Kind: StorageUnavailable, Reason: ReasonNetwork, Message: msgNetwork, Err: err}
	default:
		return &Error{Kind: StorageUnavailable, Message: fallback, Err: err}
	}
}
