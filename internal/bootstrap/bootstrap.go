// Package bootstrap seeds the initial administrator account on startup.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/smallbiznis/atrium/internal/config"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	"github.com/smallbiznis/atrium/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrCredentialMismatch means the configured admin account exists but the
// configured password does not open it. This never self-heals and needs
// an operator.
var ErrCredentialMismatch = errors.New("bootstrap admin exists with different credentials")

// Status is the phase of the bootstrap run.
type Status string

const (
	StatusChecking Status = "checking"
	StatusNeeded   Status = "needed"
	StatusCreating Status = "creating"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Result is the last observed bootstrap outcome, served verbatim by the
// setup status endpoint.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Bootstrapper checks for an administrator and creates one when missing.
// Run is safe to call repeatedly; every path converges on the same
// admin account.
type Bootstrapper struct {
	log     *zap.Logger
	bridge  identitydomain.Bridge
	store   profiledomain.Store
	cfg     config.Config
	metrics *metrics.AuthMetrics

	mu   sync.Mutex
	last Result
}

func New(log *zap.Logger, bridge identitydomain.Bridge, store profiledomain.Store, cfg config.Config, m *metrics.AuthMetrics) *Bootstrapper {
	return &Bootstrapper{
		log:     log.Named("bootstrap"),
		bridge:  bridge,
		store:   store,
		cfg:     cfg,
		metrics: m,
		last:    Result{Status: StatusChecking},
	}
}

// Last returns the most recent result.
func (b *Bootstrapper) Last() Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *Bootstrapper) record(r Result) Result {
	b.mu.Lock()
	b.last = r
	b.mu.Unlock()
	b.metrics.RecordBootstrapStatus(string(r.Status))
	return r
}

// Run executes the bootstrap sequence. A failed existence check is
// treated as "admin needed": creating a duplicate fails safely further
// down, while skipping a missing admin would lock everyone out.
func (b *Bootstrapper) Run(ctx context.Context) (Result, error) {
	if !b.cfg.BootstrapEnabled {
		return b.record(Result{Status: StatusComplete, Message: "bootstrap disabled"}), nil
	}
	if b.cfg.AdminPassword == "" {
		return b.record(Result{Status: StatusComplete, Message: "no bootstrap password configured"}), nil
	}

	b.record(Result{Status: StatusChecking})

	exists, err := b.adminExists(ctx)
	if err != nil {
		b.log.Warn("admin existence check failed, assuming admin is needed", zap.Error(err))
	}
	if exists {
		return b.record(Result{Status: StatusComplete, Message: "administrator already present"}), nil
	}

	b.record(Result{Status: StatusNeeded})
	b.record(Result{Status: StatusCreating})

	identity, err := b.ensureIdentity(ctx)
	if err != nil {
		result := Result{Status: StatusError, Message: err.Error()}
		if errors.Is(err, ErrCredentialMismatch) {
			result.Detail = "reset the account password or change BOOTSTRAP_ADMIN_EMAIL; automatic recovery is not possible"
		}
		return b.record(result), err
	}

	if err := b.ensureProfile(ctx, identity); err != nil {
		return b.record(Result{Status: StatusError, Message: err.Error()}), err
	}

	b.log.Info("administrator ready",
		zap.String("username", b.cfg.AdminUsername),
		zap.String("email", b.cfg.AdminEmail),
	)
	return b.record(Result{Status: StatusComplete, Message: "administrator created"}), nil
}

func (b *Bootstrapper) adminExists(ctx context.Context) (bool, error) {
	profiles, err := b.store.List(ctx, b.cfg.AdminListTimeout)
	if err != nil {
		return false, err
	}
	for _, p := range profiles {
		if p.Role == profiledomain.RoleAdmin || p.Username == b.cfg.AdminUsername {
			return true, nil
		}
	}
	return false, nil
}

// ensureIdentity registers the admin identity, falling back to a
// credential check when the account already exists.
func (b *Bootstrapper) ensureIdentity(ctx context.Context) (*identitydomain.Identity, error) {
	result, err := b.bridge.SignUp(ctx, b.cfg.AdminEmail, b.cfg.AdminPassword, identitydomain.Metadata{
		"username": b.cfg.AdminUsername,
	})
	if err == nil {
		return result.Identity, nil
	}
	if !errors.Is(err, identitydomain.ErrAlreadyRegistered) {
		return nil, err
	}

	// The account exists. A sign-in with the configured password proves
	// it is ours; it is transient and undone right after.
	signedIn, err := b.bridge.SignIn(ctx, b.cfg.AdminEmail, b.cfg.AdminPassword)
	if err != nil {
		if errors.Is(err, identitydomain.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialMismatch, b.cfg.AdminEmail)
		}
		return nil, err
	}
	if err := b.bridge.SignOut(ctx); err != nil {
		b.log.Warn("could not end verification session", zap.Error(err))
	}
	return signedIn.Identity, nil
}

func (b *Bootstrapper) ensureProfile(ctx context.Context, identity *identitydomain.Identity) error {
	_, err := b.store.FindByUsernameOrEmail(ctx, b.cfg.AdminUsername, b.cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, profiledomain.ErrProfileNotFound) {
		return err
	}

	_, err = b.store.Insert(ctx, &profiledomain.Profile{
		ID:            identity.ID,
		Username:      b.cfg.AdminUsername,
		Email:         b.cfg.AdminEmail,
		FullName:      "Administrator",
		Status:        profiledomain.StatusActive,
		Role:          profiledomain.RoleAdmin,
		EmailVerified: true,
		Metadata:      datatypes.JSONMap{"bootstrap": true},
	})
	if errors.Is(err, profiledomain.ErrProfileExists) {
		// Lost a race against a concurrent run; same outcome.
		return nil
	}
	return err
}
