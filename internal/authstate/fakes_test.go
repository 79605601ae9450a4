package authstate

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
)

type identityReply struct {
	identity *identitydomain.Identity
	err      error
}

type fakeBridge struct {
	mu          sync.Mutex
	session     *identitydomain.Session
	sessionErr  error
	identity    *identitydomain.Identity
	identityErr error

	signUpResult *identitydomain.SignUpResult
	signUpErr    error
	signInResult *identitydomain.SignInResult
	signInErr    error
	signOutErr   error
	signOutCalls int

	subs []identitydomain.ChangeFunc

	// When set, GetSession parks until the channel is closed.
	sessionGate chan struct{}

	// When set, GetCurrentIdentity parks each call here and the test
	// decides when and what to answer.
	identityCalls chan chan identityReply
}

var _ identitydomain.Bridge = (*fakeBridge)(nil)

func (f *fakeBridge) SignUp(ctx context.Context, email, password string, meta identitydomain.Metadata) (*identitydomain.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signUpResult, f.signUpErr
}

func (f *fakeBridge) SignIn(ctx context.Context, email, password string) (*identitydomain.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signInResult, f.signInErr
}

func (f *fakeBridge) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeBridge) GetSession(ctx context.Context) (*identitydomain.Session, error) {
	f.mu.Lock()
	gate := f.sessionGate
	session, err := f.session, f.sessionErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
		f.mu.Lock()
		session, err = f.session, f.sessionErr
		f.mu.Unlock()
	}
	return session, err
}

func (f *fakeBridge) GetCurrentIdentity(ctx context.Context) (*identitydomain.Identity, error) {
	f.mu.Lock()
	calls := f.identityCalls
	identity, err := f.identity, f.identityErr
	f.mu.Unlock()
	if calls != nil {
		reply := make(chan identityReply)
		calls <- reply
		r := <-reply
		return r.identity, r.err
	}
	return identity, err
}

func (f *fakeBridge) OnChange(fn identitydomain.ChangeFunc) identitydomain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return fakeSubscription{}
}

func (f *fakeBridge) UpdateCredential(ctx context.Context, newPassword string) error {
	return nil
}

func (f *fakeBridge) RequestCredentialReset(ctx context.Context, email string) error {
	return nil
}

func (f *fakeBridge) emit(event identitydomain.ChangeEvent, session *identitydomain.Session) {
	f.mu.Lock()
	subs := append([]identitydomain.ChangeFunc(nil), f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(event, session)
	}
}

type fakeSubscription struct{}

func (fakeSubscription) Unsubscribe() {}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[snowflake.ID]*profiledomain.Profile

	getErr    error
	insertErr error
	inserts   int
	updates   int
}

var _ profiledomain.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[snowflake.ID]*profiledomain.Profile)}
}

func (f *fakeStore) GetByID(ctx context.Context, id snowflake.ID) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, profiledomain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Username == username || p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, profiledomain.ErrProfileNotFound
}

func (f *fakeStore) List(ctx context.Context, timeout time.Duration) ([]profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]profiledomain.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, profile *profiledomain.Profile) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserts++
	cp := *profile
	f.profiles[profile.ID] = &cp
	return profile, nil
}

func (f *fakeStore) Update(ctx context.Context, id snowflake.ID, fields map[string]any) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, profiledomain.ErrProfileNotFound
	}
	f.updates++
	if bio, ok := fields["bio"].(string); ok {
		p.Bio = bio
	}
	if name, ok := fields["full_name"].(string); ok {
		p.FullName = name
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Delete(ctx context.Context, id snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[id]; !ok {
		return profiledomain.ErrProfileNotFound
	}
	delete(f.profiles, id)
	return nil
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, id snowflake.ID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		t := at
		p.LastLoginAt = &t
	}
	return nil
}
