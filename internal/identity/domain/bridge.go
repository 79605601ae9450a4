package domain

import "context"

// ChangeFunc receives push-delivered session transitions. The session is
// nil when the event ends the authenticated state.
type ChangeFunc func(event ChangeEvent, session *Session)

// Subscription is a handle on a change-event registration. Unsubscribe is
// idempotent; calling it more than once is a no-op.
type Subscription interface {
	Unsubscribe()
}

// Bridge is the client-side adapter over the identity provider. It owns
// the current session for this client and emits change events for every
// transition. All results are reported as return values; Bridge methods
// never panic on provider failures.
type Bridge interface {
	SignUp(ctx context.Context, email, password string, meta Metadata) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context) error

	// GetSession returns the current session, or nil when absent.
	GetSession(ctx context.Context) (*Session, error)

	// GetCurrentIdentity resolves the identity owning the current session,
	// or nil when signed out.
	GetCurrentIdentity(ctx context.Context) (*Identity, error)

	OnChange(fn ChangeFunc) Subscription

	UpdateCredential(ctx context.Context, newPassword string) error
	RequestCredentialReset(ctx context.Context, email string) error
}

// SignUpResult carries the created identity. Session is nil unless the
// provider auto-confirms new accounts.
type SignUpResult struct {
	Identity *Identity
	Session  *Session
}

// SignInResult carries the authenticated identity and its session.
type SignInResult struct {
	Identity *Identity
	Session  *Session
}
