package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/atrium/internal/authstate"
	"github.com/smallbiznis/atrium/internal/bootstrap"
	"github.com/smallbiznis/atrium/internal/config"
	identitydomain "github.com/smallbiznis/atrium/internal/identity/domain"
	profiledomain "github.com/smallbiznis/atrium/internal/profile/domain"
	"github.com/smallbiznis/atrium/internal/routeauth"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBridge struct {
	mu       sync.Mutex
	session  *identitydomain.Session
	identity *identitydomain.Identity

	signInErr error
	subs      []identitydomain.ChangeFunc
}

var _ identitydomain.Bridge = (*fakeBridge)(nil)

func (f *fakeBridge) SignUp(ctx context.Context, email, password string, meta identitydomain.Metadata) (*identitydomain.SignUpResult, error) {
	return &identitydomain.SignUpResult{
		Identity: &identitydomain.Identity{ID: snowflake.ID(99), Email: email},
	}, nil
}

func (f *fakeBridge) SignIn(ctx context.Context, email, password string) (*identitydomain.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &identitydomain.SignInResult{Identity: f.identity, Session: f.session}, nil
}

func (f *fakeBridge) SignOut(ctx context.Context) error { return nil }

func (f *fakeBridge) GetSession(ctx context.Context) (*identitydomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeBridge) GetCurrentIdentity(ctx context.Context) (*identitydomain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, nil
}

func (f *fakeBridge) OnChange(fn identitydomain.ChangeFunc) identitydomain.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return nopSub{}
}

func (f *fakeBridge) UpdateCredential(ctx context.Context, newPassword string) error { return nil }

func (f *fakeBridge) RequestCredentialReset(ctx context.Context, email string) error { return nil }

type nopSub struct{}

func (nopSub) Unsubscribe() {}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[snowflake.ID]*profiledomain.Profile
	deletes  int
}

var _ profiledomain.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[snowflake.ID]*profiledomain.Profile)}
}

func (f *fakeStore) GetByID(ctx context.Context, id snowflake.ID) (*profiledomain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, profiledomain.ErrProfileNotFound
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
	if bio, ok := fields["bio"].(string); ok {
		p.Bio = bio
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
	f.deletes++
	delete(f.profiles, id)
	return nil
}

func (f *fakeStore) TouchLastLogin(ctx context.Context, id snowflake.ID, at time.Time) error {
	return nil
}

type testHarness struct {
	server *Server
	bridge *fakeBridge
	store  *fakeStore
	ctrl   *authstate.Controller
}

func newTestServer(t *testing.T, bridge *fakeBridge, store *fakeStore, start bool) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		AdminUsername:    "admin",
		AdminEmail:       "admin@atrium.local",
		AdminPassword:    "opensesame",
		BootstrapEnabled: true,
		AdminListTimeout: time.Second,
		HomePath:         "/dashboard",
		LoginPath:        "/login",
	}

	ctrl := authstate.New(zap.NewNop(), bridge, store, nil, authstate.Config{
		BootstrapAdminUsername: cfg.AdminUsername,
	})
	if start {
		require.NoError(t, ctrl.Start(context.Background()))
		waitFor(t, func() bool { return !ctrl.Snapshot().Loading })
	}
	t.Cleanup(ctrl.Close)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	authorizer := routeauth.New(routeauth.NewStaticHolder(routeauth.DefaultPolicy()), nil, cfg.HomePath, cfg.LoginPath)
	bs := bootstrap.New(zap.NewNop(), bridge, store, cfg, nil)

	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          zap.NewNop(),
		Ctrl:         ctrl,
		Store:        store,
		Authorizer:   authorizer,
		Bootstrapper: bs,
	})

	return &testHarness{server: srv, bridge: bridge, store: store, ctrl: ctrl}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func doJSON(h *testHarness, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(rec, req)
	return rec
}

func authenticatedBridge(role profiledomain.Role) (*fakeBridge, *fakeStore) {
	identity := &identitydomain.Identity{ID: snowflake.ID(1), Email: "ada@example.com"}
	session := &identitydomain.Session{ID: snowflake.ID(10), IdentityID: identity.ID, ExpiresAt: time.Now().Add(time.Hour)}
	store := newFakeStore()
	store.profiles[identity.ID] = &profiledomain.Profile{
		ID:       identity.ID,
		Username: "ada",
		Email:    identity.Email,
		Status:   profiledomain.StatusActive,
		Role:     role,
	}
	return &fakeBridge{session: session, identity: identity}, store
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	h := newTestServer(t, &fakeBridge{}, newFakeStore(), true)

	rec := doJSON(h, http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/login", body["location"])
}

func TestGuardHoldsWhileLoading(t *testing.T) {
	h := newTestServer(t, &fakeBridge{}, newFakeStore(), false)

	rec := doJSON(h, http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestGuardForbidsNonAdmin(t *testing.T) {
	bridge, store := authenticatedBridge(profiledomain.RoleUser)
	h := newTestServer(t, bridge, store, true)
	waitFor(t, func() bool { return h.ctrl.Snapshot().Authenticated })

	rec := doJSON(h, http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminListsUsers(t *testing.T) {
	bridge, store := authenticatedBridge(profiledomain.RoleAdmin)
	h := newTestServer(t, bridge, store, true)
	waitFor(t, func() bool { return h.ctrl.Snapshot().Admin })

	rec := doJSON(h, http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
}

func TestAdminCannotDeleteOwnAccount(t *testing.T) {
	bridge, store := authenticatedBridge(profiledomain.RoleAdmin)
	h := newTestServer(t, bridge, store, true)
	waitFor(t, func() bool { return h.ctrl.Snapshot().Admin })

	rec := doJSON(h, http.MethodDelete, "/v1/admin/users/1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, h.store.deletes)
}

func TestLoginReturnsIntendedPath(t *testing.T) {
	identity := &identitydomain.Identity{ID: snowflake.ID(1), Email: "ada@example.com"}
	bridge := &fakeBridge{identity: identity}
	h := newTestServer(t, bridge, newFakeStore(), true)

	// Anonymous hit on a guarded route stashes the destination.
	rec := doJSON(h, http.MethodGet, "/v1/admin/users", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(h, http.MethodPost, "/v1/auth/login", LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "/v1/admin/users", body["location"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	bridge := &fakeBridge{signInErr: identitydomain.ErrInvalidCredentials}
	h := newTestServer(t, bridge, newFakeStore(), true)

	rec := doJSON(h, http.MethodPost, "/v1/auth/login", LoginRequest{Email: "x@y.z", Password: "bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupRequiresUsername(t *testing.T) {
	h := newTestServer(t, &fakeBridge{}, newFakeStore(), true)

	rec := doJSON(h, http.MethodPost, "/v1/auth/signup", SignupRequest{Email: "a@b.c", Password: "hunter22"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupCreatesProfile(t *testing.T) {
	store := newFakeStore()
	h := newTestServer(t, &fakeBridge{}, store, true)

	rec := doJSON(h, http.MethodPost, "/v1/auth/signup", SignupRequest{
		Email: "new@example.com", Password: "hunter22", Username: "newbie",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	prof, err := store.GetByID(context.Background(), snowflake.ID(99))
	require.NoError(t, err)
	require.Equal(t, profiledomain.StatusPending, prof.Status)
}

func TestStateReportsDerivedValues(t *testing.T) {
	bridge, store := authenticatedBridge(profiledomain.RoleAdmin)
	h := newTestServer(t, bridge, store, true)
	waitFor(t, func() bool { return h.ctrl.Snapshot().Admin })

	rec := doJSON(h, http.MethodGet, "/v1/auth/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Authenticated bool   `json:"authenticated"`
		Admin         bool   `json:"admin"`
		Role          string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Authenticated)
	require.True(t, body.Admin)
	require.Equal(t, "ADMIN", body.Role)
}

func TestSetupRunIsIdempotentOverHTTP(t *testing.T) {
	h := newTestServer(t, &fakeBridge{}, newFakeStore(), true)

	rec := doJSON(h, http.MethodPost, "/v1/setup/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(h, http.MethodPost, "/v1/setup/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(h, http.MethodGet, "/v1/setup/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "complete", body.Status)
}
