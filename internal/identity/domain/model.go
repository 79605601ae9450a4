// Package domain contains core types for the identity provider.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Identity is the provider-side account record.
type Identity struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	ExternalID    string            `gorm:"type:text;not null;uniqueIndex" json:"external_id"`
	Email         string            `gorm:"column:email;not null;uniqueIndex" json:"email"`
	EmailVerified bool              `gorm:"column:email_verified;not null;default:false" json:"email_verified"`
	PasswordHash  *string           `gorm:"type:text" json:"-"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Identity) TableName() string { return "identities" }

// Session is a persisted login session. The raw token is never stored;
// only its hash is.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	IdentityID snowflake.ID `gorm:"column:identity_id;not null;index" json:"identity_id"`
	TokenHash  string       `gorm:"column:token_hash;type:text;not null;uniqueIndex" json:"-"`
	UserAgent  string       `gorm:"column:user_agent;type:text" json:"user_agent"`
	IPAddress  string       `gorm:"column:ip_address;type:text" json:"ip_address"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null;index" json:"expires_at"`
	RevokedAt  *time.Time   `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	LastSeenAt time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP" json:"last_seen_at"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Metadata is free-form sign-up metadata forwarded to the provider.
type Metadata map[string]any

// ChangeEvent names a push-delivered auth state transition.
type ChangeEvent string

const (
	EventSignedIn        ChangeEvent = "SIGNED_IN"
	EventSignedOut       ChangeEvent = "SIGNED_OUT"
	EventPasswordUpdated ChangeEvent = "PASSWORD_UPDATED"
)

// SignUpRequest creates a new identity.
type SignUpRequest struct {
	Email    string
	Password string
	Metadata Metadata
}

// LoginRequest authenticates an identity.
type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult carries the issued session and its raw token.
type LoginResult struct {
	Identity  *Identity
	Session   *Session
	RawToken  string
	ExpiresAt time.Time
}
