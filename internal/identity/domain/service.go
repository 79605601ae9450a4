package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service is the server-side identity provider.
type Service interface {
	CreateIdentity(ctx context.Context, req SignUpRequest) (*Identity, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, *Identity, error)
	ChangePassword(ctx context.Context, identityID snowflake.ID, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
}
