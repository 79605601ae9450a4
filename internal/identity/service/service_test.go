package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/atrium/internal/identity/domain"
	"github.com/smallbiznis/atrium/internal/identity/repository"
	"github.com/smallbiznis/atrium/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Identity{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo, sessions := repository.New(conn)
	return New(zap.NewNop(), repo, sessions, node, time.Hour)
}

func signUp(t *testing.T, svc domain.Service, email, password string) *domain.Identity {
	t.Helper()
	identity, err := svc.CreateIdentity(context.Background(), domain.SignUpRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return identity
}

func TestCreateIdentityNormalizesEmail(t *testing.T) {
	svc := newTestService(t)

	identity := signUp(t, svc, "  Ada@Example.COM ", "hunter2222")
	require.Equal(t, "ada@example.com", identity.Email)
	require.NotEmpty(t, identity.ExternalID)
	require.NotNil(t, identity.PasswordHash)
	require.NotEqual(t, "hunter2222", *identity.PasswordHash)
}

func TestCreateIdentityRejectsDuplicates(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "ada@example.com", "hunter2222")

	_, err := svc.CreateIdentity(context.Background(), domain.SignUpRequest{
		Email:    "ADA@example.com",
		Password: "different-pass",
	})
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestCreateIdentityRejectsWeakPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateIdentity(context.Background(), domain.SignUpRequest{
		Email:    "ada@example.com",
		Password: "short",
	})
	require.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestLoginIssuesSession(t *testing.T) {
	svc := newTestService(t)
	identity := signUp(t, svc, "ada@example.com", "hunter2222")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2222",
	})
	require.NoError(t, err)
	require.Equal(t, identity.ID, result.Session.IdentityID)
	require.NotEmpty(t, result.RawToken)
	require.True(t, result.ExpiresAt.After(time.Now()))
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "ada@example.com", "hunter2222")

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "not-the-password",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever12",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	svc := newTestService(t)
	identity := signUp(t, svc, "ada@example.com", "hunter2222")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2222",
	})
	require.NoError(t, err)

	session, authed, err := svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	require.Equal(t, identity.ID, authed.ID)
	require.Equal(t, result.Session.ID, session.ID)
}

func TestAuthenticateRevokedSession(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "ada@example.com", "hunter2222")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2222",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), result.RawToken))

	_, _, err = svc.Authenticate(context.Background(), result.RawToken)
	require.ErrorIs(t, err, domain.ErrSessionRevoked)
}

func TestAuthenticateGarbageToken(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Authenticate(context.Background(), "not-a-real-token")
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, _, err = svc.Authenticate(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestChangePasswordInvalidatesOldCredential(t *testing.T) {
	svc := newTestService(t)
	identity := signUp(t, svc, "ada@example.com", "hunter2222")

	require.NoError(t, svc.ChangePassword(context.Background(), identity.ID, "new-password-1"))

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2222",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ada@example.com",
		Password: "new-password-1",
	})
	require.NoError(t, err)
}

func TestRequestPasswordResetNeverRevealsExistence(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "ada@example.com", "hunter2222")

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ada@example.com"))
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
}
