package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Store persists profiles. Implementations map backend errors onto the
// package sentinels so callers can branch without driver knowledge.
type Store interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Profile, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*Profile, error)

	// List returns every profile, bounded by timeout. A deadline hit is
	// reported as ErrListTimeout, never as an open-ended hang.
	List(ctx context.Context, timeout time.Duration) ([]Profile, error)

	Insert(ctx context.Context, profile *Profile) (*Profile, error)
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) (*Profile, error)
	Delete(ctx context.Context, id snowflake.ID) error

	TouchLastLogin(ctx context.Context, id snowflake.ID, at time.Time) error
}
