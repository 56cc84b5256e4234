package auth

import (
	"context"
	"errors"
)

var (
	// ErrNoEmail is returned when the provider account carries no email.
	ErrNoEmail = errors.New("no email found in identity provider account")
	// ErrSignInCancelled is delivered when the user closes the provider popup.
	ErrSignInCancelled = errors.New("sign-in cancelled")
)

// Profile is the display information of an external identity.
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Identity is an account resolved by the external identity provider.
// Email is the only field used to correlate with domain users.
type Identity struct {
	Email   string  `json:"email"`
	Token   string  `json:"token,omitempty"`
	Profile Profile `json:"profile"`
}

// StateListener receives every auth state change. A nil identity means
// signed out.
type StateListener func(ctx context.Context, identity *Identity)

// IdentityProvider defines the interface to the external sign-in service.
// This abstraction allows swapping the browser bridge for a fake in tests
// without changing the session code.
type IdentityProvider interface {
	// SignInPopup runs the interactive popup flow and returns the identity.
	SignInPopup(ctx context.Context) (*Identity, error)

	// SignInRedirect starts the redirect flow. The result arrives after the
	// page reload, through RedirectResult and the state listener.
	SignInRedirect(ctx context.Context) error

	// RedirectResult returns the identity of a completed redirect flow, or
	// nil when there is none. A result is returned at most once.
	RedirectResult(ctx context.Context) (*Identity, error)

	// OnAuthStateChanged registers fn and returns a function removing it.
	OnAuthStateChanged(fn StateListener) (unsubscribe func())

	// SignOut ends the provider session.
	SignOut(ctx context.Context) error
}
