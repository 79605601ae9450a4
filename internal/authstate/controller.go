package authstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/atrium/internal/fault"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	"github.com/smallbiznis/atrium/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	// ErrControllerClosed is returned by operations invoked after Close.
	ErrControllerClosed = errors.New("session controller closed")

	// ErrProfileCreation marks a sign-up whose identity was created but
	// whose profile row was not. The account stays usable for retry.
	ErrProfileCreation = errors.New("profile creation failed")
)

const eventQueueSize = 256

// Config tunes a Controller.
type Config struct {
	// BootstrapAdminUsername enables the legacy username fallback of
	// State.IsAdmin. Empty disables it.
	BootstrapAdminUsername string

	// InitTimeout bounds initialization. When it elapses before a
	// terminal state is reached the controller degrades to the
	// least-privileged state with a Timeout error.
	InitTimeout time.Duration
}

type changeMsg struct {
	event   identitydomain.ChangeEvent
	session *identitydomain.Session
}

// Controller reconciles the initial session fetch, profile resolution and
// the push-based change-event stream into one canonical State.
type Controller struct {
	log     *zap.Logger
	bridge  identitydomain.Bridge
	store   profiledomain.Store
	metrics *metrics.AuthMetrics
	cfg     Config

	mu      sync.Mutex
	st      State
	epoch   uint64
	started bool
	closed  bool

	events    chan changeMsg
	sub       identitydomain.Subscription
	watchdog  *time.Timer
	done      chan struct{}
	closeOnce sync.Once
}

// New builds a controller in the initializing state. Nothing runs until
// Start. Each instance is independent; there is no package-level state.
func New(log *zap.Logger, bridge identitydomain.Bridge, store profiledomain.Store, m *metrics.AuthMetrics, cfg Config) *Controller {
	return &Controller{
		log:     log.Named("authstate"),
		bridge:  bridge,
		store:   store,
		metrics: m,
		cfg:     cfg,
		st:      State{Loading: true},
		events:  make(chan changeMsg, eventQueueSize),
		done:    make(chan struct{}),
	}
}

// Start runs the initialization protocol once per controller lifetime:
// subscribe to change events, fetch the session snapshot, resolve the
// profile, then drain queued events in delivery order.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	// The subscription is registered before the snapshot fetch so no
	// transition is missed; delivery is deferred through the queue until
	// the snapshot has been applied.
	c.sub = c.bridge.OnChange(func(event identitydomain.ChangeEvent, session *identitydomain.Session) {
		select {
		case c.events <- changeMsg{event: event, session: session}:
		case <-c.done:
		}
	})

	if c.cfg.InitTimeout > 0 {
		c.watchdog = time.AfterFunc(c.cfg.InitTimeout, c.degrade)
	}

	go c.run(ctx)
	return nil
}

// Close tears the controller down. It is idempotent, and any async result
// arriving afterwards is silently discarded.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.epoch++
		c.mu.Unlock()

		if c.watchdog != nil {
			c.watchdog.Stop()
		}
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		close(c.done)
	})
}

// Snapshot returns the current state with freshly derived values.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	st := c.st
	c.mu.Unlock()

	return Snapshot{
		State:         st,
		Authenticated: st.IsAuthenticated(),
		Admin:         st.IsAdmin(c.cfg.BootstrapAdminUsername),
		Role:          st.UserRole(c.cfg.BootstrapAdminUsername),
	}
}

func (c *Controller) run(ctx context.Context) {
	c.initialize(ctx)

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.events:
			c.handleEvent(ctx, msg)
		}
	}
}

func (c *Controller) initialize(ctx context.Context) {
	c.mu.Lock()
	startEpoch := c.epoch
	c.mu.Unlock()

	session, err := c.bridge.GetSession(ctx)

	c.mu.Lock()
	// A fetch that loses the race against the watchdog or a queued event
	// is stale and must not overwrite what superseded it.
	if c.closed || c.epoch != startEpoch {
		c.mu.Unlock()
		return
	}
	c.epoch++
	epoch := c.epoch

	switch {
	case err != nil:
		// Fail safe: prefer logged out over half-authenticated.
		c.st = State{Loading: false, Err: fault.From(err)}
		c.mu.Unlock()
		c.log.Warn("session fetch failed during init", zap.Error(err))
	case session == nil:
		c.st = State{Loading: false}
		c.mu.Unlock()
	default:
		c.st.Session = session
		c.st.Err = nil
		c.mu.Unlock()
		// Synchronous on purpose: queued events must not be applied
		// before the initial snapshot reached its terminal state.
		c.resolve(ctx, epoch)
	}
}

func (c *Controller) handleEvent(ctx context.Context, msg changeMsg) {
	c.metrics.RecordSessionEvent(string(msg.event))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.epoch++
	epoch := c.epoch

	c.st.Session = msg.session
	c.st.Err = nil

	if msg.session == nil {
		c.st.Identity = nil
		c.st.Profile = nil
		c.st.Loading = false
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Resolution runs off the event loop so a slow fetch for this event
	// cannot delay newer events; the epoch discards superseded results.
	go c.resolve(ctx, epoch)
}

// resolve fetches the identity and profile for the session that was
// current at epoch, and applies the result only if still current.
func (c *Controller) resolve(ctx context.Context, epoch uint64) {
	identity, err := c.bridge.GetCurrentIdentity(ctx)

	var prof *profiledomain.Profile
	var profErr error
	if err == nil && identity != nil {
		prof, profErr = c.store.GetByID(ctx, identity.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || epoch != c.epoch {
		return
	}

	if err != nil {
		// Keep the session; flag the failure.
		c.st.Err = fault.From(err)
		c.st.Loading = false
		return
	}
	if identity == nil {
		c.st.Loading = false
		return
	}

	c.st.Identity = identity
	if profErr != nil {
		if !errors.Is(profErr, profiledomain.ErrProfileNotFound) {
			c.st.Err = fault.From(profErr)
		}
		c.st.Profile = nil
	} else {
		c.st.Profile = prof
		c.st.Err = nil
	}
	c.st.Loading = false
}

// degrade forces the least-privileged state when initialization is stuck.
func (c *Controller) degrade() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.st.Loading {
		return
	}

	c.epoch++
	c.st = State{
		Loading: false,
		Err:     fault.New(fault.Timeout, "authentication state could not be confirmed in time"),
	}
	c.log.Warn("initialization watchdog fired; degrading to unauthenticated")
}

// ProfileSeed carries the profile fields captured at registration.
type ProfileSeed struct {
	Username  string
	FirstName string
	LastName  string
	Bio       string
}

// SignUp creates the identity and its profile row. A profile insertion
// failure is reported as ErrProfileCreation without rolling back the
// identity, which stays usable for retry.
func (c *Controller) SignUp(ctx context.Context, email, password string, seed ProfileSeed) error {
	if err := c.begin(); err != nil {
		return err
	}

	result, err := c.bridge.SignUp(ctx, email, password, identitydomain.Metadata{
		"username":   seed.Username,
		"first_name": seed.FirstName,
		"last_name":  seed.LastName,
	})
	if err != nil {
		c.finish("sign_up", err)
		return err
	}

	fullName := strings.TrimSpace(seed.FirstName + " " + seed.LastName)
	prof := &profiledomain.Profile{
		ID:        result.Identity.ID,
		Username:  seed.Username,
		Email:     result.Identity.Email,
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
		FullName:  fullName,
		Status:    profiledomain.StatusPending,
		Role:      profiledomain.RoleUser,
		Bio:       seed.Bio,
		Metadata:  datatypes.JSONMap{},
	}
	if _, perr := c.store.Insert(ctx, prof); perr != nil {
		wrapped := fmt.Errorf("%w: %v", ErrProfileCreation, perr)
		c.finish("sign_up", wrapped)
		return wrapped
	}

	c.finish("sign_up", nil)
	return nil
}

// SignIn authenticates against the bridge. On success the authenticated
// state is populated by the change-event path, never directly here, so
// there is exactly one writer of authenticated transitions.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	if err := c.begin(); err != nil {
		return err
	}

	result, err := c.bridge.SignIn(ctx, email, password)
	if err != nil {
		c.finish("sign_in", err)
		return err
	}

	if result.Identity != nil {
		if terr := c.store.TouchLastLogin(ctx, result.Identity.ID, time.Now().UTC()); terr != nil {
			c.log.Warn("last login update failed", zap.Error(terr))
		}
	}

	c.finish("sign_in", nil)
	return nil
}

// SignOut revokes the session and clears local state before returning,
// independent of change-event timing.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}

	err := c.bridge.SignOut(ctx)

	c.mu.Lock()
	if !c.closed {
		c.epoch++
		c.st.Identity = nil
		c.st.Profile = nil
		c.st.Session = nil
		c.st.Loading = false
		if err != nil {
			c.st.Err = fault.From(err)
		} else {
			c.st.Err = nil
		}
	}
	c.mu.Unlock()

	c.metrics.RecordOperation("sign_out", err)
	return err
}

// UpdateProfile writes through the store keyed by the profile's own id
// when it diverges from the identity id, and merges the returned row into
// local state.
func (c *Controller) UpdateProfile(ctx context.Context, fields map[string]any) (*profiledomain.Profile, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	identity := c.st.Identity
	current := c.st.Profile
	c.mu.Unlock()

	if identity == nil {
		err := identitydomain.ErrNotAuthenticated
		c.finish("update_profile", err)
		return nil, err
	}

	id := identity.ID
	if current != nil {
		id = current.ID
	}

	updated, err := c.store.Update(ctx, id, fields)
	if err != nil {
		c.finish("update_profile", err)
		return nil, err
	}

	c.mu.Lock()
	if !c.closed && c.st.Identity != nil && c.st.Identity.ID == identity.ID {
		c.st.Profile = updated
	}
	c.mu.Unlock()

	c.finish("update_profile", nil)
	return updated, nil
}

// ResetPassword asks the provider to start a credential reset.
func (c *Controller) ResetPassword(ctx context.Context, email string) error {
	if err := c.begin(); err != nil {
		return err
	}
	err := c.bridge.RequestCredentialReset(ctx, email)
	c.finish("reset_password", err)
	return err
}

// UpdatePassword replaces the current identity's credential.
func (c *Controller) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := c.begin(); err != nil {
		return err
	}
	err := c.bridge.UpdateCredential(ctx, newPassword)
	c.finish("update_password", err)
	return err
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	c.st.Loading = true
	c.st.Err = nil
	return nil
}

func (c *Controller) finish(op string, err error) {
	c.mu.Lock()
	if !c.closed {
		c.st.Loading = false
		if err != nil {
			c.st.Err = fault.From(err)
		}
	}
	c.mu.Unlock()

	c.metrics.RecordOperation(op, err)
}
