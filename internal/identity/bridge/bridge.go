// Package bridge adapts the identity provider to the client-side contract
// the session controller consumes. One bridge instance represents one
// signed-in client: it owns the current session token and fans change
// events out to subscribers in delivery order.
package bridge

import (
	"context"
	"sync"

	"github.com/smallbiznis/atrium/internal/identity/domain"
	"go.uber.org/zap"
)

type Client struct {
	log *zap.Logger
	svc domain.Service

	mu       sync.Mutex
	rawToken string
	session  *domain.Session
	identity *domain.Identity
	subs     map[uint64]*subscription
	nextSub  uint64
}

// New builds a bridge over the identity service.
func New(log *zap.Logger, svc domain.Service) *Client {
	return &Client{
		log:  log.Named("identity.bridge"),
		svc:  svc,
		subs: make(map[uint64]*subscription),
	}
}

var _ domain.Bridge = (*Client)(nil)

func (c *Client) SignUp(ctx context.Context, email, password string, meta domain.Metadata) (*domain.SignUpResult, error) {
	identity, err := c.svc.CreateIdentity(ctx, domain.SignUpRequest{
		Email:    email,
		Password: password,
		Metadata: meta,
	})
	if err != nil {
		return nil, err
	}

	// New accounts are not auto-confirmed; no session is issued here.
	return &domain.SignUpResult{Identity: identity}, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.SignInResult, error) {
	result, err := c.svc.Login(ctx, domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rawToken = result.RawToken
	c.session = result.Session
	c.identity = result.Identity
	c.emitLocked(domain.EventSignedIn, result.Session)
	c.mu.Unlock()

	return &domain.SignInResult{Identity: result.Identity, Session: result.Session}, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.rawToken
	c.rawToken = ""
	c.session = nil
	c.identity = nil
	c.emitLocked(domain.EventSignedOut, nil)
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	// The local session is already gone; a revocation failure is reported
	// but does not resurrect it.
	if err := c.svc.Logout(ctx, token); err != nil {
		c.log.Warn("session revocation failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	_ = ctx

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	session := *c.session
	return &session, nil
}

func (c *Client) GetCurrentIdentity(ctx context.Context) (*domain.Identity, error) {
	c.mu.Lock()
	token := c.rawToken
	c.mu.Unlock()

	if token == "" {
		return nil, nil
	}

	session, identity, err := c.svc.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.rawToken == token {
		c.session = session
		c.identity = identity
	}
	c.mu.Unlock()

	return identity, nil
}

func (c *Client) UpdateCredential(ctx context.Context, newPassword string) error {
	c.mu.Lock()
	identity := c.identity
	session := c.session
	c.mu.Unlock()

	if identity == nil {
		return domain.ErrNotAuthenticated
	}

	if err := c.svc.ChangePassword(ctx, identity.ID, newPassword); err != nil {
		return err
	}

	c.mu.Lock()
	c.emitLocked(domain.EventPasswordUpdated, session)
	c.mu.Unlock()
	return nil
}

func (c *Client) RequestCredentialReset(ctx context.Context, email string) error {
	return c.svc.RequestPasswordReset(ctx, email)
}

// OnChange registers a subscriber. Events are delivered synchronously in
// the order they occur.
func (c *Client) OnChange(fn domain.ChangeFunc) domain.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	sub := &subscription{client: c, id: id, fn: fn}
	c.subs[id] = sub
	return sub
}

func (c *Client) emitLocked(event domain.ChangeEvent, session *domain.Session) {
	for _, sub := range c.subs {
		var copied *domain.Session
		if session != nil {
			s := *session
			copied = &s
		}
		sub.fn(event, copied)
	}
}

type subscription struct {
	client *Client
	id     uint64
	fn     domain.ChangeFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.mu.Lock()
		delete(s.client.subs, s.id)
		s.client.mu.Unlock()
	})
}
